package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vinizap/zapvenda/pkg/api/errors"
	"github.com/vinizap/zapvenda/pkg/profile"
)

// ProfileHandler handles profile and onboarding endpoints
type ProfileHandler struct {
	service *profile.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service *profile.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// CompleteStepRequest marks an onboarding step as done.
type CompleteStepRequest struct {
	Step profile.Step `json:"step"`
}

// Get godoc
// @Summary Get the account profile
// @Tags Profile
// @Produce json
// @Success 200 {object} profile.Profile
// @Router /api/v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, err := h.service.Get(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update godoc
// @Summary Update the account profile
// @Description The phone number is stored in E.164 format.
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body profile.Profile true "Profile"
// @Success 200 {object} profile.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/profile [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req profile.Profile
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	p, err := h.service.Update(ctx, req)
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetOnboarding godoc
// @Summary Get onboarding progress
// @Tags Profile
// @Produce json
// @Success 200 {object} profile.Onboarding
// @Router /api/v1/onboarding [get]
func (h *ProfileHandler) GetOnboarding(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	o, err := h.service.Onboarding(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CompleteOnboardingStep godoc
// @Summary Complete an onboarding step
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body CompleteStepRequest true "Step"
// @Success 200 {object} profile.Onboarding
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/onboarding [put]
func (h *ProfileHandler) CompleteOnboardingStep(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req CompleteStepRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}

	o, err := h.service.CompleteStep(ctx, req.Step)
	if err != nil {
		return errors.Handle(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ResetOnboarding godoc
// @Summary Reset onboarding progress
// @Tags Profile
// @Success 204
// @Router /api/v1/onboarding [delete]
func (h *ProfileHandler) ResetOnboarding(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.service.ResetOnboarding(ctx); err != nil {
		return errors.InternalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
