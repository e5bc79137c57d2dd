package funnel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/template"
	"golang.org/x/text/unicode/norm"
)

// Validation messages surfaced next to the offending field.
const (
	MsgNameRequired            = "name is required"
	MsgNameTooShort            = "name too short"
	MsgDescriptionRequired     = "description is required"
	MsgStepsRequired           = "at least one step is required"
	MsgTemplateRequired        = "template is required"
	MsgTemplateNotFound        = "template not found"
	MsgDelayNegative           = "delay must be zero or greater"
	MsgDelayTooLarge           = "delay is too large"
	MsgConditionInvalid        = "invalid condition"
	MsgCustomConditionRequired = "custom condition is required"
	MsgDuplicateStepID         = "duplicate step id"
)

// FieldError is a validation failure attached to one input, addressed by its
// JSON path (e.g. "steps[1].custom_condition").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field-level failure of a save attempt.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Message returns the message for field, or "" when the field passed.
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Normalize prepares a funnel for validation and storage: text is trimmed and
// NFC-normalized, blank step names become "Etapa N" and missing step ids are
// generated. Delays and conditions are left untouched.
func Normalize(f Funnel) Funnel {
	out := f.Clone()
	out.Name = normalizeText(out.Name)
	out.Description = normalizeText(out.Description)
	for i := range out.Steps {
		step := &out.Steps[i]
		if step.ID == "" {
			step.ID = uuid.NewString()
		}
		step.Name = normalizeText(step.Name)
		if step.Name == "" {
			step.Name = DefaultStepName(i)
		}
		step.TemplateID = strings.TrimSpace(step.TemplateID)
		step.CustomCondition = normalizeText(step.CustomCondition)
	}
	return out
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Validate checks funnel and step fields. Template references are resolved
// against catalog when it is non-nil. Field failures are returned as a
// *ValidationError; lookup failures are returned wrapped.
func Validate(ctx context.Context, f Funnel, catalog template.Catalog) error {
	var fields []FieldError

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate funnel: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldPath(fe), Message: messageFor(fe)})
		}
	}

	seen := make(map[string]struct{}, len(f.Steps))
	for i, step := range f.Steps {
		if step.ID != "" {
			if _, dup := seen[step.ID]; dup {
				fields = append(fields, FieldError{Field: fmt.Sprintf("steps[%d].id", i), Message: MsgDuplicateStepID})
			}
			seen[step.ID] = struct{}{}
		}

		if catalog == nil || step.TemplateID == "" {
			continue
		}
		if _, err := catalog.Get(ctx, step.TemplateID); err != nil {
			if domain.IsNotFound(err) {
				fields = append(fields, FieldError{Field: fmt.Sprintf("steps[%d].template_id", i), Message: MsgTemplateNotFound})
				continue
			}
			return fmt.Errorf("failed to resolve template %s: %w", step.TemplateID, err)
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		if fe.Tag() == "min" {
			return MsgNameTooShort
		}
		return MsgNameRequired
	case "description":
		return MsgDescriptionRequired
	case "steps":
		return MsgStepsRequired
	case "template_id":
		return MsgTemplateRequired
	case "delay":
		if fe.Tag() == "lte" {
			return MsgDelayTooLarge
		}
		return MsgDelayNegative
	case "condition":
		return MsgConditionInvalid
	case "custom_condition":
		return MsgCustomConditionRequired
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
