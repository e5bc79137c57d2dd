package funnel

import (
	"context"
	"fmt"

	"github.com/vinizap/zapvenda/pkg/template"
)

// DescribeTrigger renders the human-readable rule that advances a contact
// past step.
func DescribeTrigger(step Step) string {
	switch step.Condition {
	case ConditionNone:
		return fmt.Sprintf("Após %d minutos", step.Delay)
	case ConditionResponse:
		return "Quando responder"
	case ConditionClick:
		return "Quando clicar"
	case ConditionCustom:
		return "Quando " + step.CustomCondition
	}
	return ""
}

// PreviewStep is one node of the rendered chain.
type PreviewStep struct {
	Index        int    `json:"index"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name,omitempty"`
}

// Transition is the trigger description between two adjacent steps.
type Transition struct {
	From        int    `json:"from"`
	To          int    `json:"to"`
	Description string `json:"description"`
}

// Preview is the read-only projection of a step list.
type Preview struct {
	Steps       []PreviewStep `json:"steps"`
	Transitions []Transition  `json:"transitions"`
}

// BuildPreview projects steps into a chain with len(steps)-1 transitions.
// Template names are resolved through catalog when it is non-nil; unknown
// templates are left unnamed.
func BuildPreview(ctx context.Context, steps []Step, catalog template.Catalog) Preview {
	p := Preview{
		Steps:       make([]PreviewStep, len(steps)),
		Transitions: make([]Transition, 0, max(len(steps)-1, 0)),
	}

	for i, step := range steps {
		name := step.Name
		if name == "" {
			name = DefaultStepName(i)
		}
		ps := PreviewStep{Index: i, ID: step.ID, Name: name, TemplateID: step.TemplateID}
		if catalog != nil && step.TemplateID != "" {
			if tpl, err := catalog.Get(ctx, step.TemplateID); err == nil {
				ps.TemplateName = tpl.Name
			}
		}
		p.Steps[i] = ps

		if i > 0 {
			p.Transitions = append(p.Transitions, Transition{
				From:        i - 1,
				To:          i,
				Description: DescribeTrigger(steps[i-1]),
			})
		}
	}

	return p
}
