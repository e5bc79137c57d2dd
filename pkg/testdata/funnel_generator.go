package testdata

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/template"
)

// Generator produces realistic templates and funnels. The same seed yields
// the same data.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed), now: time.Now().UTC()}
}

var templateCategories = []string{"boas-vindas", "oferta", "follow-up", "pós-venda", "reativação"}

var funnelThemes = []string{"Captação", "Reativação", "Pós-venda", "Lançamento", "Carrinho abandonado", "Black Friday"}

var customConditions = []string{"abrir o catálogo", "pedir orçamento", "enviar comprovante", "responder a pesquisa"}

// Template returns a template of a random type with an id.
func (g *Generator) Template() template.Template {
	typ := template.Type(g.faker.RandomString([]string{
		string(template.TypeText), string(template.TypeText), string(template.TypeImage),
		string(template.TypeVideo), string(template.TypeAudio), string(template.TypeFile),
	}))

	t := template.Template{
		ID:        g.faker.UUID(),
		Name:      fmt.Sprintf("%s %s", g.faker.BuzzWord(), g.faker.Noun()),
		Content:   g.faker.Sentence(12),
		Type:      typ,
		Category:  g.faker.RandomString(templateCategories),
		CreatedAt: g.now.Add(-time.Duration(g.faker.Number(1, 720)) * time.Hour),
	}
	if typ != template.TypeText {
		t.FileURL = g.faker.URL()
	}
	return t
}

// Templates returns count templates.
func (g *Generator) Templates(count int) []template.Template {
	out := make([]template.Template, count)
	for i := range out {
		out[i] = g.Template()
	}
	return out
}

// Step returns a valid step using one of templates.
func (g *Generator) Step(index int, templates []template.Template) funnel.Step {
	s := funnel.Step{
		ID:        g.faker.UUID(),
		Name:      funnel.DefaultStepName(index),
		Condition: funnel.Condition(g.faker.RandomString([]string{"none", "none", "response", "click", "custom"})),
	}
	if len(templates) > 0 {
		s.TemplateID = templates[g.faker.Number(0, len(templates)-1)].ID
	}
	switch s.Condition {
	case funnel.ConditionNone:
		s.Delay = g.faker.RandomInt([]int{0, 5, 30, 60, 120, 1440})
	case funnel.ConditionCustom:
		s.CustomCondition = g.faker.RandomString(customConditions)
	}
	return s
}

// Funnel returns a funnel with steps steps that passes validation against
// templates. The id is left empty.
func (g *Generator) Funnel(steps int, templates []template.Template) funnel.Funnel {
	f := funnel.Funnel{
		Name:        fmt.Sprintf("%s %s", g.faker.RandomString(funnelThemes), g.faker.Company()),
		Description: g.faker.Sentence(8),
		IsActive:    g.faker.Bool(),
		Steps:       make([]funnel.Step, max(steps, 1)),
	}
	for i := range f.Steps {
		f.Steps[i] = g.Step(i, templates)
	}
	return f
}

// Seed creates templateCount templates and funnelCount funnels of 1 to 5
// steps each.
func Seed(ctx context.Context, g *Generator, templates template.Repository, funnels *funnel.Service, templateCount, funnelCount int) error {
	created := g.Templates(templateCount)
	for _, t := range created {
		if err := templates.Create(ctx, t); err != nil {
			return fmt.Errorf("failed to seed template: %w", err)
		}
	}

	for i := 0; i < funnelCount; i++ {
		if _, err := funnels.Create(ctx, g.Funnel(g.faker.Number(1, 5), created)); err != nil {
			return fmt.Errorf("failed to seed funnel %d: %w", i, err)
		}
	}
	return nil
}
