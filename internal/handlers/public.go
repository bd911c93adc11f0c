package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/util"
)

// PublicHandler serves the unauthenticated read surface: only
// published rows ever leave these endpoints.
type PublicHandler struct {
	DB *gorm.DB
}

// About returns the single published About entry.
func (h *PublicHandler) About(c echo.Context) error {
	var about models.About
	if err := h.DB.Where("published = ?", true).First(&about).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no published about entry")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, about)
}

func (h *PublicHandler) Projects(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Project{}).Where("published = ?", true).Count(&total).Error; err != nil {
		return apperr.Internal(err)
	}

	var items []models.Project
	if err := h.DB.Where("published = ?", true).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}

	return apperr.OK(c, http.StatusOK, echo.Map{
		"items": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *PublicHandler) ProjectBySlug(c echo.Context) error {
	var project models.Project
	err := h.DB.Where("slug = ? AND published = ?", c.Param("slug"), true).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("project not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, project)
}

func (h *PublicHandler) Experiences(c echo.Context) error {
	var items []models.Experience
	if err := h.DB.Where("published = ?", true).
		Order("start_date DESC").
		Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, items)
}
