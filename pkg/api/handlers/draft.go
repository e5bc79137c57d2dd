package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/funnel"
)

// DraftHandler drives funnel editors kept server-side between requests
type DraftHandler struct {
	drafts *funnel.DraftService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(drafts *funnel.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// OpenDraftRequest opens an editor. Mode is create, view or edit.
type OpenDraftRequest struct {
	Mode     string `json:"mode"`
	FunnelID string `json:"funnel_id,omitempty"`
}

// UpdateStepRequest replaces one field of a step.
type UpdateStepRequest struct {
	Field funnel.StepField `json:"field"`
	Value any              `json:"value"`
}

// DetailsRequest replaces the funnel-level fields of a draft.
type DetailsRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// TabRequest switches the visible panel.
type TabRequest struct {
	Tab funnel.Tab `json:"tab"`
}

// Open godoc
// @Summary Open a funnel editor
// @Tags Drafts
// @Accept json
// @Produce json
// @Param request body OpenDraftRequest true "Mode and funnel"
// @Success 201 {object} funnel.Draft
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts [post]
func (h *DraftHandler) Open(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req OpenDraftRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	d, err := h.drafts.Open(ctx, req.Mode, req.FunnelID)
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// Get godoc
// @Summary Get a funnel editor
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} funnel.Draft
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id} [get]
func (h *DraftHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	d, err := h.drafts.Get(ctx, c.Param("id"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Discard godoc
// @Summary Discard a funnel editor
// @Tags Drafts
// @Param id path string true "Draft ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id} [delete]
func (h *DraftHandler) Discard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.drafts.Discard(ctx, c.Param("id")); err != nil {
		return errors.Handle(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DiscardAll godoc
// @Summary Discard every open funnel editor
// @Tags Drafts
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts [delete]
func (h *DraftHandler) DiscardAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	n, err := h.drafts.Purge(ctx)
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"discarded": n})
}

// AddStep godoc
// @Summary Append a step
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} funnel.Draft
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id}/steps [post]
func (h *DraftHandler) AddStep(c echo.Context) error {
	return h.apply(c, func(ctx context.Context, id string) (*funnel.Draft, error) {
		return h.drafts.AddStep(ctx, id)
	})
}

// RemoveStep godoc
// @Summary Remove a step
// @Description The last remaining step cannot be removed.
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Param index path int true "Step index"
// @Success 200 {object} funnel.Draft
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id}/steps/{index} [delete]
func (h *DraftHandler) RemoveStep(c echo.Context) error {
	index, ok := stepIndex(c)
	if !ok {
		return errors.BadRequestError(c, "invalid_index", "Step index must be a number")
	}
	return h.apply(c, func(ctx context.Context, id string) (*funnel.Draft, error) {
		return h.drafts.RemoveStep(ctx, id, index)
	})
}

// SelectStep godoc
// @Summary Select a step
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Param index path int true "Step index"
// @Success 200 {object} funnel.Draft
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id}/steps/{index}/select [post]
func (h *DraftHandler) SelectStep(c echo.Context) error {
	index, ok := stepIndex(c)
	if !ok {
		return errors.BadRequestError(c, "invalid_index", "Step index must be a number")
	}
	return h.apply(c, func(ctx context.Context, id string) (*funnel.Draft, error) {
		return h.drafts.SelectStep(ctx, id, index)
	})
}

// UpdateStep godoc
// @Summary Update one field of a step
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param index path int true "Step index"
// @Param request body UpdateStepRequest true "Field and value"
// @Success 200 {object} funnel.Draft
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id}/steps/{index} [patch]
func (h *DraftHandler) UpdateStep(c echo.Context) error {
	index, ok := stepIndex(c)
	if !ok {
		return errors.BadRequestError(c, "invalid_index", "Step index must be a number")
	}
	var req UpdateStepRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	return h.apply(c, func(ctx context.Context, id string) (*funnel.Draft, error) {
		return h.drafts.UpdateStepField(ctx, id, index, req.Field, req.Value)
	})
}

// SetDetails godoc
// @Summary Set name, description and active flag
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body DetailsRequest true "Details"
// @Success 200 {object} funnel.Draft
// @Failure 409 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id}/details [put]
func (h *DraftHandler) SetDetails(c echo.Context) error {
	var req DetailsRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	return h.apply(c, func(ctx context.Context, id string) (*funnel.Draft, error) {
		return h.drafts.SetDetails(ctx, id, req.Name, req.Description, req.IsActive)
	})
}

// SetTab godoc
// @Summary Switch the visible panel
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body TabRequest true "Tab"
// @Success 200 {object} funnel.Draft
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/funnel-drafts/{id}/tab [put]
func (h *DraftHandler) SetTab(c echo.Context) error {
	var req TabRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	return h.apply(c, func(ctx context.Context, id string) (*funnel.Draft, error) {
		return h.drafts.SetTab(ctx, id, req.Tab)
	})
}

// Transition godoc
// @Summary Run a mode transition
// @Description action is one of edit, cancel, submit, request-delete, cancel-delete, confirm-delete.
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Param action path string true "Action"
// @Success 200 {object} funnel.Draft
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ValidationErrorResponse
// @Router /api/v1/funnel-drafts/{id}/{action} [post]
func (h *DraftHandler) Transition(c echo.Context) error {
	var fn func(ctx context.Context, id string) (*funnel.Draft, error)
	switch c.Param("action") {
	case "edit":
		fn = h.drafts.Edit
	case "cancel":
		fn = h.drafts.Cancel
	case "submit":
		fn = h.drafts.Submit
	case "request-delete":
		fn = h.drafts.RequestDelete
	case "cancel-delete":
		fn = h.drafts.CancelDelete
	case "confirm-delete":
		fn = h.drafts.ConfirmDelete
	default:
		return errors.NotFoundError(c, "action")
	}
	return h.apply(c, fn)
}

func (h *DraftHandler) apply(c echo.Context, fn func(ctx context.Context, id string) (*funnel.Draft, error)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	d, err := fn(ctx, c.Param("id"))
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func stepIndex(c echo.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	return index, err == nil
}
