// Package projects exposes the read-only reporting API. Intake and
// updates stay on the interactive console; the HTTP surface only lists
// and inspects projects.
package projects

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/poised-pms/poised/pkg/errs"
	"github.com/poised-pms/poised/pkg/lifecycle"
	"github.com/poised-pms/poised/pkg/models"
	"github.com/poised-pms/poised/pkg/tracing"
)

// Handler serves project reporting routes
type Handler struct {
	service *lifecycle.Service
}

// NewHandler creates a new projects handler
func NewHandler(service *lifecycle.Service) *Handler {
	return &Handler{service: service}
}

// Register registers project routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:query", h.Get)
	g.GET("/:query/description", h.Describe)
}

// ProjectListResponse wraps a project listing
type ProjectListResponse struct {
	Items      []*models.Project `json:"items"`
	TotalCount int               `json:"total_count"`
	Filter     string            `json:"filter"`
}

// List returns projects, optionally filtered with ?filter=incomplete or
// ?filter=overdue
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "projects_handler.List")
	defer span.End()

	filterParam := c.QueryParam("filter")
	var filter models.ListFilter
	switch filterParam {
	case "", "all":
		filterParam = "all"
		filter = models.All()
	case "incomplete":
		filter = models.Incomplete()
	case "overdue":
		filter = models.Overdue(time.Now())
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "filter must be all, incomplete, or overdue")
	}

	items, err := h.service.List(ctx, filter)
	if err != nil {
		return toHTTPError(err, "failed to list projects")
	}

	return c.JSON(http.StatusOK, ProjectListResponse{
		Items:      items,
		TotalCount: len(items),
		Filter:     filterParam,
	})
}

// Get resolves a project by number or exact name
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "projects_handler.Get")
	defer span.End()

	project, err := h.service.Search(ctx, c.Param("query"))
	if err != nil {
		return toHTTPError(err, "failed to get project")
	}

	return c.JSON(http.StatusOK, project)
}

// Describe returns the project's plain-text description block
func (h *Handler) Describe(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "projects_handler.Describe")
	defer span.End()

	project, err := h.service.Search(ctx, c.Param("query"))
	if err != nil {
		return toHTTPError(err, "failed to get project")
	}

	return c.String(http.StatusOK, project.String())
}

func toHTTPError(err error, fallback string) error {
	switch {
	case errs.IsValidation(err):
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	case errs.IsAmbiguous(err):
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	case errs.IsUnavailable(err):
		return httperror.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return httperror.NewHTTPError(http.StatusInternalServerError, fallback)
	}
}
