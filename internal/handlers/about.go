package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/session"
)

type AboutHandler struct {
	DB *gorm.DB
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid id")
	}
	return uint(id), nil
}

func (h *AboutHandler) Create(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Title == "" || req.Body == "" {
		return apperr.Validation("title and body are required")
	}

	userID, _ := session.UserID(c)
	about := models.About{
		Title:     req.Title,
		Body:      req.Body,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
	if err := h.DB.Create(&about).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusCreated, about)
}

func (h *AboutHandler) List(c echo.Context) error {
	var items []models.About
	if err := h.DB.Order("id ASC").Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, items)
}

func (h *AboutHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var about models.About
	if err := h.DB.First(&about, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("about entry not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, about)
}

func (h *AboutHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		Title *string `json:"title"`
		Body  *string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	var about models.About
	if err := h.DB.First(&about, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("about entry not found")
		}
		return apperr.Internal(err)
	}

	if req.Title != nil {
		about.Title = *req.Title
	}
	if req.Body != nil {
		about.Body = *req.Body
	}
	userID, _ := session.UserID(c)
	about.UpdatedBy = userID

	if err := h.DB.Save(&about).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, about)
}

func (h *AboutHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res := h.DB.Delete(&models.About{}, id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("about entry not found")
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"deleted": id})
}

// Publish marks one About entry published and unpublishes every other
// entry in the same transaction: at most one About is live at a time.
func (h *AboutHandler) Publish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	userID, _ := session.UserID(c)

	var about models.About
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&about, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.About{}).
			Where("id <> ? AND published = ?", id, true).
			Updates(map[string]any{"published": false, "updated_by": userID}).Error; err != nil {
			return err
		}
		about.Published = true
		about.UpdatedBy = userID
		return tx.Save(&about).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("about entry not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, about)
}

func (h *AboutHandler) Unpublish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	userID, _ := session.UserID(c)

	var about models.About
	if err := h.DB.First(&about, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("about entry not found")
		}
		return apperr.Internal(err)
	}
	about.Published = false
	about.UpdatedBy = userID
	if err := h.DB.Save(&about).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, about)
}
