package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/template"
)

// TemplateHandler handles message template endpoints
type TemplateHandler struct {
	repo      template.Repository
	validator *validator.Validate
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(repo template.Repository) *TemplateHandler {
	return &TemplateHandler{
		repo:      repo,
		validator: validator.New(),
	}
}

// List godoc
// @Summary List message templates
// @Tags Templates
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/templates [get]
func (h *TemplateHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.repo.List(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"templates": list,
		"count":     len(list),
	})
}

// Create godoc
// @Summary Create a message template
// @Tags Templates
// @Accept json
// @Produce json
// @Param request body template.CreateRequest true "Template"
// @Success 201 {object} template.Template
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/templates [post]
func (h *TemplateHandler) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req template.CreateRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	t, err := req.Build(time.Now())
	if err != nil {
		return errors.Handle(c, err)
	}
	if err := h.repo.Create(ctx, t); err != nil {
		return errors.Handle(c, err)
	}

	return c.JSON(http.StatusCreated, t)
}

// Get godoc
// @Summary Get a message template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} template.Template
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	t, err := h.repo.Get(ctx, c.Param("id"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Delete godoc
// @Summary Delete a message template
// @Description Funnels still referencing the template fail validation on their next save.
// @Tags Templates
// @Param id path string true "Template ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/templates/{id} [delete]
func (h *TemplateHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.repo.Delete(ctx, c.Param("id")); err != nil {
		return errors.Handle(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
