// Package funnel models drip-message funnels: an ordered list of steps, each
// sending a template and naming the condition that advances the contact to
// the next step. Conditions and delays are data only; nothing here schedules
// or dispatches messages.
package funnel

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Condition is the trigger rule that advances a funnel past a step.
type Condition string

const (
	// ConditionNone advances automatically after the step delay.
	ConditionNone Condition = "none"
	// ConditionResponse advances when the contact replies.
	ConditionResponse Condition = "response"
	// ConditionClick advances when the contact clicks a link.
	ConditionClick Condition = "click"
	// ConditionCustom advances per the free-text CustomCondition.
	ConditionCustom Condition = "custom"
)

// Conditions lists every valid condition in display order.
var Conditions = []Condition{ConditionNone, ConditionResponse, ConditionClick, ConditionCustom}

// Valid reports whether c is one of the four known tags.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNone, ConditionResponse, ConditionClick, ConditionCustom:
		return true
	}
	return false
}

// Step is one message-sending unit of a funnel.
type Step struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	TemplateID      string    `json:"template_id" validate:"required"`
	Delay           int       `json:"delay" validate:"gte=0,lte=2147483647"`
	Condition       Condition `json:"condition" validate:"oneof=none response click custom"`
	CustomCondition string    `json:"custom_condition,omitempty" validate:"required_if=Condition custom"`
}

// NewStep returns a step with a fresh id and default field values.
func NewStep() Step {
	return Step{
		ID:        uuid.NewString(),
		Condition: ConditionNone,
	}
}

// DefaultStepName is the label used for a step left unnamed.
func DefaultStepName(index int) string {
	return fmt.Sprintf("Etapa %d", index+1)
}

// Funnel is a named, ordered sequence of steps.
type Funnel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,min=3"`
	Description string    `json:"description" validate:"required"`
	Steps       []Step    `json:"steps" validate:"required,min=1,dive"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of f; the copy owns its own steps slice.
func (f Funnel) Clone() Funnel {
	out := f
	out.Steps = cloneSteps(f.Steps)
	return out
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
