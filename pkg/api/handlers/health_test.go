package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinizap/zapvenda/pkg/models"
	"github.com/vinizap/zapvenda/pkg/storage"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthHandler(t *testing.T) {
	t.Run("All healthy", func(t *testing.T) {
		handler := NewHealthHandler(map[string]Pinger{"cache": storage.NewMemoryStore()})
		c, rec := newRequest(http.MethodGet, "/health", "")

		require.NoError(t, handler.Health(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode[models.HealthResponse](t, rec)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "healthy", resp.Services["cache"])
	})

	t.Run("Degraded", func(t *testing.T) {
		handler := NewHealthHandler(map[string]Pinger{
			"cache":    storage.NewMemoryStore(),
			"database": failingPinger{},
		})
		c, rec := newRequest(http.MethodGet, "/health", "")

		require.NoError(t, handler.Health(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[models.HealthResponse](t, rec)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unhealthy", resp.Services["database"])
	})
}
