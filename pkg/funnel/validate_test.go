package funnel

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinizap/zapvenda/pkg/template"
	"golang.org/x/text/unicode/norm"
)

func testCatalog() *template.MemoryCatalog {
	return template.NewMemoryCatalog(
		template.Template{ID: "tpl-welcome", Name: "Boas-vindas", Type: template.TypeText},
		template.Template{ID: "tpl-offer", Name: "Oferta", Type: template.TypeText},
	)
}

func validFunnel() Funnel {
	return Funnel{
		Name:        "Captação",
		Description: "Leads do Instagram",
		Steps: []Step{
			{ID: "s1", TemplateID: "tpl-welcome", Delay: 60, Condition: ConditionNone},
			{ID: "s2", TemplateID: "tpl-offer", Condition: ConditionResponse},
		},
	}
}

func TestValidate_Success(t *testing.T) {
	err := Validate(context.Background(), Normalize(validFunnel()), testCatalog())
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Funnel)
		field   string
		message string
	}{
		{"name too short", func(f *Funnel) { f.Name = "AB" }, "name", MsgNameTooShort},
		{"name missing", func(f *Funnel) { f.Name = "   " }, "name", MsgNameRequired},
		{"description missing", func(f *Funnel) { f.Description = "" }, "description", MsgDescriptionRequired},
		{"no steps", func(f *Funnel) { f.Steps = nil }, "steps", MsgStepsRequired},
		{"template missing", func(f *Funnel) { f.Steps[0].TemplateID = "" }, "steps[0].template_id", MsgTemplateRequired},
		{"template unknown", func(f *Funnel) { f.Steps[1].TemplateID = "tpl-gone" }, "steps[1].template_id", MsgTemplateNotFound},
		{"negative delay", func(f *Funnel) { f.Steps[0].Delay = -1 }, "steps[0].delay", MsgDelayNegative},
		{"delay beyond a database integer", func(f *Funnel) {
			f.Steps[0].Delay = math.MaxInt32
			f.Steps[0].Delay++
		}, "steps[0].delay", MsgDelayTooLarge},
		{"bad condition", func(f *Funnel) { f.Steps[1].Condition = "timer" }, "steps[1].condition", MsgConditionInvalid},
		{"custom without text", func(f *Funnel) {
			f.Steps[1].Condition = ConditionCustom
			f.Steps[1].CustomCondition = "  "
		}, "steps[1].custom_condition", MsgCustomConditionRequired},
		{"duplicate step ids", func(f *Funnel) { f.Steps[1].ID = "s1" }, "steps[1].id", MsgDuplicateStepID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFunnel()
			tt.mutate(&f)

			err := Validate(context.Background(), Normalize(f), testCatalog())

			ve, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.message, ve.Message(tt.field), ve.Error())
		})
	}
}

func TestValidate_MaxDelay(t *testing.T) {
	f := validFunnel()
	f.Steps[0].Delay = math.MaxInt32

	assert.NoError(t, Validate(context.Background(), Normalize(f), testCatalog()))
}

func TestValidate_CustomConditionWithText(t *testing.T) {
	f := validFunnel()
	f.Steps[1].Condition = ConditionCustom
	f.Steps[1].CustomCondition = "responder positivamente"

	assert.NoError(t, Validate(context.Background(), Normalize(f), testCatalog()))
}

func TestValidate_NameCountsCharactersNotBytes(t *testing.T) {
	f := validFunnel()
	// "Ção" is three characters but more than three bytes, decomposed or not.
	f.Name = norm.NFD.String("Ção")

	assert.NoError(t, Validate(context.Background(), Normalize(f), testCatalog()))
}

type failingCatalog struct{ template.Catalog }

func (failingCatalog) Get(context.Context, string) (*template.Template, error) {
	return nil, errors.New("db down")
}

func TestValidate_CatalogFailure(t *testing.T) {
	err := Validate(context.Background(), Normalize(validFunnel()), failingCatalog{})

	require.Error(t, err)
	_, isValidation := AsValidationError(err)
	assert.False(t, isValidation)
	assert.Contains(t, err.Error(), "db down")
}

func TestNormalize(t *testing.T) {
	f := validFunnel()
	f.Name = "  Captação  "
	f.Steps[0].Name = ""
	f.Steps[1].ID = ""
	f.Steps[1].Name = "Oferta"

	out := Normalize(f)

	assert.Equal(t, "Captação", out.Name)
	assert.Equal(t, "Etapa 1", out.Steps[0].Name)
	assert.Equal(t, "Oferta", out.Steps[1].Name)
	assert.NotEmpty(t, out.Steps[1].ID)
	assert.Equal(t, 60, out.Steps[0].Delay)
	assert.Empty(t, f.Steps[0].Name, "input is not mutated")
}

func TestEditor_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario - name too short emits nothing", func(t *testing.T) {
		e := NewEditor()
		require.NoError(t, e.SetDetails("AB", "Descrição", true))
		require.NoError(t, e.UpdateStepField(0, FieldTemplateID, "tpl-welcome"))

		emitted := 0
		_, err := e.Save(ctx, testCatalog(), Callbacks{Save: func(context.Context, Funnel) error {
			emitted++
			return nil
		}})

		ve, ok := AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, MsgNameTooShort, ve.Message("name"))
		assert.Equal(t, 0, emitted)
		assert.Equal(t, ModeCreate, e.Mode())
		assert.NotEmpty(t, e.Errors())
	})

	t.Run("Scenario - custom condition on second step", func(t *testing.T) {
		e := NewEditor()
		require.NoError(t, e.SetDetails("Captação", "Funil de captação", true))
		require.NoError(t, e.UpdateStepField(0, FieldTemplateID, "tpl-welcome"))
		_, err := e.AddStep()
		require.NoError(t, err)
		require.NoError(t, e.UpdateStepField(1, FieldTemplateID, "tpl-offer"))
		require.NoError(t, e.UpdateStepField(1, FieldCondition, ConditionCustom))
		require.NoError(t, e.UpdateStepField(1, FieldCustomCondition, "responder positivamente"))

		var emitted []Funnel
		saved, err := e.Save(ctx, testCatalog(), Callbacks{Save: func(_ context.Context, f Funnel) error {
			emitted = append(emitted, f)
			return nil
		}})

		require.NoError(t, err)
		require.Len(t, emitted, 1)
		assert.NotEmpty(t, emitted[0].ID)
		assert.Equal(t, saved.ID, emitted[0].ID)
		assert.Equal(t, ConditionCustom, emitted[0].Steps[1].Condition)
		assert.Equal(t, "responder positivamente", emitted[0].Steps[1].CustomCondition)
		assert.Equal(t, "Etapa 2", emitted[0].Steps[1].Name)
		assert.Equal(t, ModeView, e.Mode())
		assert.Empty(t, e.Errors())
	})

	t.Run("Round trip keeps delay and condition", func(t *testing.T) {
		e := NewEditor()
		require.NoError(t, e.SetDetails("Captação", "Funil", true))
		require.NoError(t, e.UpdateStepField(0, FieldTemplateID, "tpl-welcome"))
		require.NoError(t, e.UpdateStepField(0, FieldDelay, 60))
		_, err := e.AddStep()
		require.NoError(t, err)
		require.NoError(t, e.UpdateStepField(1, FieldTemplateID, "tpl-offer"))
		require.NoError(t, e.UpdateStepField(1, FieldCondition, ConditionResponse))

		saved, err := e.Save(ctx, testCatalog(), nil)
		require.NoError(t, err)

		reopened, err := OpenEditor(saved, ModeEditing)
		require.NoError(t, err)
		steps := reopened.Steps()
		assert.Equal(t, saved.Steps, steps)
		assert.Equal(t, 60, steps[0].Delay)
		assert.Equal(t, ConditionNone, steps[0].Condition)
		assert.Equal(t, 0, steps[1].Delay)
		assert.Equal(t, ConditionResponse, steps[1].Condition)
	})

	t.Run("Listener failure keeps editing", func(t *testing.T) {
		f := validFunnel()
		f.ID = "f1"
		e, err := OpenEditor(f, ModeEditing)
		require.NoError(t, err)

		_, err = e.Save(ctx, testCatalog(), Callbacks{Save: func(context.Context, Funnel) error {
			return errors.New("disk full")
		}})

		assert.ErrorContains(t, err, "disk full")
		assert.Equal(t, ModeEditing, e.Mode())
	})

	t.Run("Save in view mode is rejected", func(t *testing.T) {
		f := validFunnel()
		f.ID = "f1"
		e, err := OpenEditor(f, ModeView)
		require.NoError(t, err)

		_, err = e.Save(ctx, testCatalog(), nil)
		assert.ErrorIs(t, err, ErrReadOnly)
	})
}
