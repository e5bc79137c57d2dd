package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/logger"
)

type countingObserver struct {
	created, updated, deleted, invalid int
}

func (o *countingObserver) FunnelSaved(created bool) {
	if created {
		o.created++
	} else {
		o.updated++
	}
}
func (o *countingObserver) FunnelDeleted()          { o.deleted++ }
func (o *countingObserver) FunnelValidationFailed() { o.invalid++ }

func setupService(t *testing.T) (*Service, *MemoryRepository, *countingObserver) {
	t.Helper()
	repo := NewMemoryRepository()
	obs := &countingObserver{}
	svc := NewService(repo, testCatalog(), logger.Discard(), obs)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return svc, repo, obs
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, _, obs := setupService(t)
		in := validFunnel()
		in.ID = "client-id"

		created, err := svc.Create(ctx, in)

		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.NotEqual(t, "client-id", created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
		assert.Equal(t, 1, obs.created)
	})

	t.Run("Error - validation", func(t *testing.T) {
		svc, repo, obs := setupService(t)
		in := validFunnel()
		in.Name = "AB"

		_, err := svc.Create(ctx, in)

		_, ok := AsValidationError(err)
		assert.True(t, ok)
		assert.Equal(t, 1, obs.invalid)
		list, _ := repo.List(ctx)
		assert.Empty(t, list)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _, obs := setupService(t)

	created, err := svc.Create(ctx, validFunnel())
	require.NoError(t, err)

	t.Run("Replaces steps wholesale", func(t *testing.T) {
		in := created.Clone()
		in.Name = "Captação 2"
		in.Steps = in.Steps[:1]

		updated, err := svc.Update(ctx, created.ID, in)

		require.NoError(t, err)
		assert.Equal(t, "Captação 2", updated.Name)
		assert.Len(t, updated.Steps, 1)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
		assert.Equal(t, 1, obs.updated)
	})

	t.Run("Error - not found", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", validFunnel())
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestService_SaveEditorAfterDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo, obs := setupService(t)

	created, err := svc.Create(ctx, validFunnel())
	require.NoError(t, err)

	e, err := OpenEditor(*created, ModeEditing)
	require.NoError(t, err)
	require.NoError(t, e.SetDetails("Captação antiga", created.Description, true))

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.SaveEditor(ctx, e)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, ModeEditing, e.Mode())
	assert.Equal(t, 1, obs.created)
	assert.Zero(t, obs.updated)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "a stale editor does not bring the funnel back")
}

func TestService_DeleteAndPreview(t *testing.T) {
	ctx := context.Background()
	svc, _, obs := setupService(t)

	created, err := svc.Create(ctx, validFunnel())
	require.NoError(t, err)

	p, err := svc.Preview(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, p.Transitions, 1)
	assert.Equal(t, "Após 60 minutos", p.Transitions[0].Description)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, 1, obs.deleted)

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, domain.IsNotFound(err))
	assert.True(t, domain.IsNotFound(svc.Delete(ctx, created.ID)))
}

func TestService_Check(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Check(ctx, validFunnel()))

	bad := validFunnel()
	bad.Description = ""
	_, ok := AsValidationError(svc.Check(ctx, bad))
	assert.True(t, ok)

	list, _ := repo.List(ctx)
	assert.Empty(t, list, "check never persists")
}
