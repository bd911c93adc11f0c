package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/session"
)

type ExperienceHandler struct {
	DB *gorm.DB
}

type experienceRequest struct {
	Company   *string    `json:"company"`
	Position  *string    `json:"position"`
	Summary   *string    `json:"summary"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (h *ExperienceHandler) Create(c echo.Context) error {
	var req experienceRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Company == nil || strings.TrimSpace(*req.Company) == "" {
		return apperr.Validation("company is required")
	}
	if req.Position == nil || strings.TrimSpace(*req.Position) == "" {
		return apperr.Validation("position is required")
	}
	if req.StartDate == nil {
		return apperr.Validation("start_date is required")
	}
	if req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return apperr.Validation("end_date precedes start_date")
	}

	userID, _ := session.UserID(c)
	exp := models.Experience{
		Company:   strings.TrimSpace(*req.Company),
		Position:  strings.TrimSpace(*req.Position),
		StartDate: *req.StartDate,
		EndDate:   req.EndDate,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
	if req.Summary != nil {
		exp.Summary = *req.Summary
	}
	if err := h.DB.Create(&exp).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusCreated, exp)
}

func (h *ExperienceHandler) List(c echo.Context) error {
	var items []models.Experience
	if err := h.DB.Order("start_date DESC").Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, items)
}

func (h *ExperienceHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var exp models.Experience
	if err := h.DB.First(&exp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("experience not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, exp)
}

func (h *ExperienceHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req experienceRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	var exp models.Experience
	if err := h.DB.First(&exp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("experience not found")
		}
		return apperr.Internal(err)
	}

	if req.Company != nil && strings.TrimSpace(*req.Company) != "" {
		exp.Company = strings.TrimSpace(*req.Company)
	}
	if req.Position != nil && strings.TrimSpace(*req.Position) != "" {
		exp.Position = strings.TrimSpace(*req.Position)
	}
	if req.Summary != nil {
		exp.Summary = *req.Summary
	}
	if req.StartDate != nil {
		exp.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		exp.EndDate = req.EndDate
	}
	if exp.EndDate != nil && exp.EndDate.Before(exp.StartDate) {
		return apperr.Validation("end_date precedes start_date")
	}
	userID, _ := session.UserID(c)
	exp.UpdatedBy = userID

	if err := h.DB.Save(&exp).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, exp)
}

func (h *ExperienceHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res := h.DB.Delete(&models.Experience{}, id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("experience not found")
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"deleted": id})
}

func (h *ExperienceHandler) Publish(c echo.Context) error {
	return h.setPublished(c, true)
}

func (h *ExperienceHandler) Unpublish(c echo.Context) error {
	return h.setPublished(c, false)
}

func (h *ExperienceHandler) setPublished(c echo.Context, published bool) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var exp models.Experience
	if err := h.DB.First(&exp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("experience not found")
		}
		return apperr.Internal(err)
	}
	userID, _ := session.UserID(c)
	exp.Published = published
	exp.UpdatedBy = userID
	if err := h.DB.Save(&exp).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, exp)
}
