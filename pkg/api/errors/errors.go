package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/models"
)

var log logger.Logger = logger.Default()

// SetLogger replaces the logger used for internal error details.
func SetLogger(l logger.Logger) {
	if l != nil {
		log = l
	}
}

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	log.Warn("validation error", "path", c.Request().URL.Path, "error", err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// FieldValidationError returns the per-field messages of a funnel validation failure
func FieldValidationError(c echo.Context, verr *funnel.ValidationError) error {
	fields := make([]models.FieldError, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, models.FieldError{Field: f.Field, Message: f.Message})
	}
	return c.JSON(http.StatusUnprocessableEntity, models.ValidationErrorResponse{
		Error:   "validation_error",
		Message: "Funnel is invalid. Fix the highlighted fields and try again.",
		Fields:  fields,
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Error("internal error", "path", c.Request().URL.Path, "error", err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// NotFoundError returns a not found error naming the resource
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: resource + " not found",
	})
}

// ConflictError returns a conflict error
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message, // safe to expose
	})
}

// BadRequestError returns a bad request error with a caller-chosen code
func BadRequestError(c echo.Context, code, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// Handle maps service errors to responses: funnel validation to 422,
// editor state violations to 409, malformed edits to 400 and domain errors
// by code.
func Handle(c echo.Context, err error) error {
	if verr, ok := funnel.AsValidationError(err); ok {
		return FieldValidationError(c, verr)
	}

	switch {
	case stderrors.Is(err, funnel.ErrLastStep),
		stderrors.Is(err, funnel.ErrReadOnly),
		stderrors.Is(err, funnel.ErrInvalidTransition):
		return ConflictError(c, err.Error())
	case stderrors.Is(err, funnel.ErrStepIndex),
		stderrors.Is(err, funnel.ErrUnknownField),
		stderrors.Is(err, funnel.ErrFieldType),
		stderrors.Is(err, funnel.ErrNoSteps),
		stderrors.Is(err, funnel.ErrInvalidTab):
		return BadRequestError(c, "invalid_edit", err.Error())
	}

	var de *domain.DomainError
	if stderrors.As(err, &de) {
		switch de.Code {
		case domain.ErrCodeNotFound:
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: de.Message})
		case domain.ErrCodeValidation:
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: de.Message})
		case domain.ErrCodeConflict:
			return ConflictError(c, de.Message)
		case domain.ErrCodeBadRequest:
			return BadRequestError(c, "invalid_request", de.Message)
		}
	}

	return InternalError(c, err)
}
