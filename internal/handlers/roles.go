package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/rbac"
)

// RoleHandler exposes role and permission administration. All routes
// sit behind the roles:manage permission.
type RoleHandler struct {
	DB       *gorm.DB
	Resolver *rbac.Resolver
}

func (h *RoleHandler) ListRoles(c echo.Context) error {
	var roles []models.Role
	if err := h.DB.Preload("Permissions").Order("id ASC").Find(&roles).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, roles)
}

func (h *RoleHandler) CreateRole(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	req.Name = strings.ToUpper(strings.TrimSpace(req.Name))
	if req.Name == "" {
		return apperr.Validation("name is required")
	}

	var existing models.Role
	err := h.DB.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return apperr.Conflict("role already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Internal(err)
	}

	role := models.Role{Name: req.Name, Description: req.Description}
	if err := h.DB.Create(&role).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusCreated, role)
}

func (h *RoleHandler) ListPermissions(c echo.Context) error {
	var perms []models.Permission
	if err := h.DB.Order("key ASC").Find(&perms).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, perms)
}

type grantRequest struct {
	Role string `json:"role"`
	Key  string `json:"key"`
}

func (h *RoleHandler) GrantPermission(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Resolver.GrantPermission(c.Request().Context(), req.Role, req.Key); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("role or permission not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"granted": req.Key, "role": req.Role})
}

func (h *RoleHandler) RevokePermission(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Resolver.RevokePermission(c.Request().Context(), req.Role, req.Key); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("role or permission not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"revoked": req.Key, "role": req.Role})
}

type assignRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

func (h *RoleHandler) AssignRole(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Resolver.AssignRole(c.Request().Context(), req.UserID, req.Role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user or role not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"user_id": req.UserID, "role": req.Role})
}

func (h *RoleHandler) RemoveRole(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.Resolver.RemoveRole(c.Request().Context(), req.UserID, req.Role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user or role not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"user_id": req.UserID, "removed": req.Role})
}
