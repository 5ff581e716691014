package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tunecast/internal/livestream"
)

func TestHealthHandler_GetHealth(t *testing.T) {
	t.Run("reports healthy without a manager", func(t *testing.T) {
		handler := NewHealthHandler("1.0.0")

		out, err := handler.GetHealth(context.Background(), &HealthInput{})
		require.NoError(t, err)

		assert.Equal(t, "healthy", out.Body.Status)
		assert.Equal(t, "1.0.0", out.Body.Version)
		assert.Zero(t, out.Body.ActiveSessions)
	})

	t.Run("includes session counts", func(t *testing.T) {
		cfg := livestream.DefaultConfig()
		cfg.CleanupRetryDelay = time.Millisecond
		manager := livestream.NewManager(livestream.NewTempPathAllocator(t.TempDir()), cfg, 10, nil)
		t.Cleanup(manager.CloseAll)

		ms := testSource()
		_, err := manager.OpenStream(context.Background(), livestream.OpenRequest{MediaSource: &ms})
		require.NoError(t, err)

		handler := NewHealthHandler("1.0.0").WithManager(manager)
		out, err := handler.GetHealth(context.Background(), &HealthInput{})
		require.NoError(t, err)

		assert.Equal(t, 1, out.Body.ActiveSessions)
		assert.Equal(t, 1, out.Body.TotalConsumers)
	})
}
