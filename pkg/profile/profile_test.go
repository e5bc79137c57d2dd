package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/storage"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	return NewService(storage.NewMemoryStore(), "BR", nil)
}

func TestService_Profile(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty before first save", func(t *testing.T) {
		svc := setupService(t)
		p, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, p.Email)
	})

	t.Run("Update normalizes phone", func(t *testing.T) {
		svc := setupService(t)

		saved, err := svc.Update(ctx, Profile{
			Name:    " Maria Souza ",
			Email:   "Maria@Loja.com.br",
			Phone:   "(11) 96123-4567",
			Company: "Loja da Maria",
		})

		require.NoError(t, err)
		assert.Equal(t, "Maria Souza", saved.Name)
		assert.Equal(t, "maria@loja.com.br", saved.Email)
		assert.Equal(t, "+5511961234567", saved.Phone)
		assert.False(t, saved.UpdatedAt.IsZero())

		loaded, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, saved.Phone, loaded.Phone)

		o, err := svc.Onboarding(ctx)
		require.NoError(t, err)
		assert.Contains(t, o.CompletedSteps, StepProfile)
		assert.Equal(t, StepWhatsApp, o.CurrentStep)
	})

	t.Run("Error - validation", func(t *testing.T) {
		tests := []struct {
			name string
			in   Profile
		}{
			{"missing name", Profile{Email: "a@b.com", Phone: "11961234567"}},
			{"bad email", Profile{Name: "Maria", Email: "not-an-email", Phone: "11961234567"}},
			{"bad phone", Profile{Name: "Maria", Email: "a@b.com", Phone: "123"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := setupService(t)
				_, err := svc.Update(ctx, tt.in)
				assert.True(t, domain.IsValidation(err))
			})
		}
	})
}

func TestService_Onboarding(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	o, err := svc.Onboarding(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepProfile, o.CurrentStep)
	assert.False(t, o.Completed)

	// out of order
	o, err = svc.CompleteStep(ctx, StepTemplates)
	require.NoError(t, err)
	assert.Equal(t, StepProfile, o.CurrentStep)

	for _, st := range Steps {
		o, err = svc.CompleteStep(ctx, st)
		require.NoError(t, err)
	}
	assert.True(t, o.Completed)
	assert.Len(t, o.CompletedSteps, len(Steps))

	_, err = svc.CompleteStep(ctx, "billing")
	assert.True(t, domain.IsBadRequest(err))

	require.NoError(t, svc.ResetOnboarding(ctx))
	o, err = svc.Onboarding(ctx)
	require.NoError(t, err)
	assert.Empty(t, o.CompletedSteps)
}
