package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/events"
	"github.com/craftwerk/portfolio-backend/internal/logging"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/search"
	"github.com/craftwerk/portfolio-backend/internal/session"
)

type ProjectHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	Index    search.ProjectIndex
}

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := slugSanitizer.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

func (h *ProjectHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

// syncIndex keeps Elasticsearch in step with the published flag.
// Index failures are logged, not surfaced: the database is the source
// of truth and the index catches up on the next publish.
func (h *ProjectHandler) syncIndex(c echo.Context, p *models.Project) {
	if h.Index == nil {
		return
	}
	ctx := c.Request().Context()
	var err error
	if p.Published {
		err = h.Index.IndexProject(ctx, p)
	} else {
		err = h.Index.DeleteProject(ctx, p.ID)
	}
	if err != nil {
		logging.FromContext(ctx).Error("search index sync failed", "project", p.ID, "error", err)
	}
}

type projectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tech        *string `json:"tech"`
	RepoURL     *string `json:"repo_url"`
	LiveURL     *string `json:"live_url"`
}

func (h *ProjectHandler) Create(c echo.Context) error {
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return apperr.Validation("title is required")
	}

	userID, _ := session.UserID(c)
	project := models.Project{
		Title:     strings.TrimSpace(*req.Title),
		Slug:      slugify(*req.Title),
		CreatedBy: userID,
		UpdatedBy: userID,
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Tech != nil {
		project.Tech = *req.Tech
	}
	if req.RepoURL != nil {
		project.RepoURL = *req.RepoURL
	}
	if req.LiveURL != nil {
		project.LiveURL = *req.LiveURL
	}

	if err := h.DB.Create(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("a project with this title already exists")
		}
		return apperr.Internal(err)
	}

	h.publish(c, fmt.Sprint(project.ID), map[string]any{
		"type":      "project_created",
		"projectID": project.ID,
		"title":     project.Title,
	})

	return apperr.OK(c, http.StatusCreated, project)
}

func (h *ProjectHandler) List(c echo.Context) error {
	var items []models.Project
	if err := h.DB.Order("id ASC").Find(&items).Error; err != nil {
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, items)
}

func (h *ProjectHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var project models.Project
	if err := h.DB.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("project not found")
		}
		return apperr.Internal(err)
	}
	return apperr.OK(c, http.StatusOK, project)
}

func (h *ProjectHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	var project models.Project
	if err := h.DB.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("project not found")
		}
		return apperr.Internal(err)
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		project.Title = strings.TrimSpace(*req.Title)
		project.Slug = slugify(project.Title)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Tech != nil {
		project.Tech = *req.Tech
	}
	if req.RepoURL != nil {
		project.RepoURL = *req.RepoURL
	}
	if req.LiveURL != nil {
		project.LiveURL = *req.LiveURL
	}
	userID, _ := session.UserID(c)
	project.UpdatedBy = userID

	if err := h.DB.Save(&project).Error; err != nil {
		return apperr.Internal(err)
	}

	// A published project keeps its index document fresh.
	if project.Published {
		h.syncIndex(c, &project)
	}
	return apperr.OK(c, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res := h.DB.Delete(&models.Project{}, id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("project not found")
	}
	if h.Index != nil {
		if err := h.Index.DeleteProject(c.Request().Context(), id); err != nil {
			logging.FromContext(c.Request().Context()).Error("search index delete failed", "project", id, "error", err)
		}
	}
	return apperr.OK(c, http.StatusOK, echo.Map{"deleted": id})
}

func (h *ProjectHandler) Publish(c echo.Context) error {
	return h.setPublished(c, true)
}

func (h *ProjectHandler) Unpublish(c echo.Context) error {
	return h.setPublished(c, false)
}

func (h *ProjectHandler) setPublished(c echo.Context, published bool) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var project models.Project
	if err := h.DB.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("project not found")
		}
		return apperr.Internal(err)
	}

	userID, _ := session.UserID(c)
	project.Published = published
	project.UpdatedBy = userID
	if err := h.DB.Save(&project).Error; err != nil {
		return apperr.Internal(err)
	}

	h.syncIndex(c, &project)
	if published {
		h.publish(c, fmt.Sprint(project.ID), map[string]any{
			"type":      "project_published",
			"projectID": project.ID,
			"slug":      project.Slug,
		})
	}
	return apperr.OK(c, http.StatusOK, project)
}
