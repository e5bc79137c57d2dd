package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/export"
	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/models"
)

// ExportRecorder counts generated exports.
type ExportRecorder interface {
	RecordExportCreated()
}

// FunnelHandler handles funnel CRUD, validation, preview and export
type FunnelHandler struct {
	service  *funnel.Service
	recorder ExportRecorder
}

// NewFunnelHandler creates a new funnel handler. recorder may be nil.
func NewFunnelHandler(service *funnel.Service, recorder ExportRecorder) *FunnelHandler {
	return &FunnelHandler{service: service, recorder: recorder}
}

// FunnelRequest is the body of create, update and validate requests.
// IsActive defaults to true when omitted.
type FunnelRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsActive    *bool         `json:"is_active,omitempty"`
	Steps       []funnel.Step `json:"steps"`
}

func (r FunnelRequest) toFunnel() funnel.Funnel {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return funnel.Funnel{
		Name:        r.Name,
		Description: r.Description,
		IsActive:    active,
		Steps:       r.Steps,
	}
}

// List godoc
// @Summary List funnels
// @Tags Funnels
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/funnels [get]
func (h *FunnelHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.service.List(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}
	if list == nil {
		list = []funnel.Funnel{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"funnels": list,
		"count":   len(list),
	})
}

// Create godoc
// @Summary Create a funnel
// @Description Validates and stores a funnel. The server assigns the id.
// @Tags Funnels
// @Accept json
// @Produce json
// @Param request body FunnelRequest true "Funnel"
// @Success 201 {object} funnel.Funnel
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ValidationErrorResponse
// @Router /api/v1/funnels [post]
func (h *FunnelHandler) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req FunnelRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	created, err := h.service.Create(ctx, req.toFunnel())
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Get godoc
// @Summary Get a funnel
// @Tags Funnels
// @Produce json
// @Param id path string true "Funnel ID"
// @Success 200 {object} funnel.Funnel
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/funnels/{id} [get]
func (h *FunnelHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	f, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Update godoc
// @Summary Update a funnel
// @Description Replaces name, description, active flag and the whole step list.
// @Tags Funnels
// @Accept json
// @Produce json
// @Param id path string true "Funnel ID"
// @Param request body FunnelRequest true "Funnel"
// @Success 200 {object} funnel.Funnel
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ValidationErrorResponse
// @Router /api/v1/funnels/{id} [put]
func (h *FunnelHandler) Update(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req FunnelRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	updated, err := h.service.Update(ctx, c.Param("id"), req.toFunnel())
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete godoc
// @Summary Delete a funnel
// @Tags Funnels
// @Param id path string true "Funnel ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/funnels/{id} [delete]
func (h *FunnelHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, c.Param("id")); err != nil {
		return errors.Handle(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Preview godoc
// @Summary Preview a funnel
// @Description Returns the ordered steps and the trigger description between each pair.
// @Tags Funnels
// @Produce json
// @Param id path string true "Funnel ID"
// @Success 200 {object} funnel.Preview
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/funnels/{id}/preview [get]
func (h *FunnelHandler) Preview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, err := h.service.Preview(ctx, c.Param("id"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Validate godoc
// @Summary Validate a funnel without saving it
// @Tags Funnels
// @Accept json
// @Produce json
// @Param request body FunnelRequest true "Funnel"
// @Success 200 {object} models.SuccessResponse
// @Failure 422 {object} models.ValidationErrorResponse
// @Router /api/v1/funnels/validate [post]
func (h *FunnelHandler) Validate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req FunnelRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	if err := h.service.Check(ctx, req.toFunnel()); err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Message: "funnel is valid"})
}

// Export godoc
// @Summary Export funnels to Excel
// @Description One sheet of funnels and one sheet of steps with their triggers.
// @Tags Funnels
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/funnels/export [get]
func (h *FunnelHandler) Export(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	list, err := h.service.List(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}

	var buf bytes.Buffer
	if err := export.FunnelWorkbook(ctx, &buf, list, h.service.Catalog()); err != nil {
		return errors.InternalError(c, err)
	}
	if h.recorder != nil {
		h.recorder.RecordExportCreated()
	}

	filename := fmt.Sprintf("funis-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}
