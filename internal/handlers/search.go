package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/search"
	"github.com/craftwerk/portfolio-backend/internal/util"
)

type SearchHandler struct {
	Index search.ProjectIndex
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *SearchHandler) Search(c echo.Context) error {
	if h.Index == nil {
		return apperr.Validation("search is not available")
	}

	q := c.QueryParam("q")
	if q == "" {
		return apperr.Validation("query parameter q is required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	total, projects, err := h.Index.SearchProjects(c.Request().Context(), q, from, size)
	if err != nil {
		return apperr.Internal(err)
	}

	return apperr.OK(c, http.StatusOK, echo.Map{
		"total":    total,
		"projects": projects,
	})
}
