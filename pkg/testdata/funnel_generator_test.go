package testdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/template"
)

func TestGenerator_FunnelIsValid(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator(42)
	templates := g.Templates(5)
	catalog := template.NewMemoryCatalog(templates...)

	for i := 0; i < 20; i++ {
		f := g.Funnel(4, templates)
		require.Len(t, f.Steps, 4)
		assert.NoError(t, funnel.Validate(ctx, funnel.Normalize(f), catalog))
	}
}

func TestGenerator_TemplateFileURL(t *testing.T) {
	g := NewGenerator(7)
	for _, tpl := range g.Templates(30) {
		if tpl.Type == template.TypeText {
			assert.Empty(t, tpl.FileURL)
		} else {
			assert.NotEmpty(t, tpl.FileURL)
		}
		assert.True(t, tpl.Type.Valid())
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(1).Template()
	b := NewGenerator(1).Template()
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.Name, b.Name)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	catalog := template.NewMemoryCatalog()
	svc := funnel.NewService(funnel.NewMemoryRepository(), catalog, nil, nil)

	require.NoError(t, Seed(ctx, NewGenerator(3), catalog, svc, 4, 6))

	tpls, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tpls, 4)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 6)
}
