package livestream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenerFunc(t *testing.T) {
	called := false
	f := OpenerFunc(func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, f.OpenStream(context.Background()))
	assert.True(t, called)

	wantErr := errors.New("no signal")
	f = OpenerFunc(func(ctx context.Context) error { return wantErr })
	assert.ErrorIs(t, f.OpenStream(context.Background()), wantErr)
}

func TestProcessOpener(t *testing.T) {
	t.Run("starts and stops the recorder", func(t *testing.T) {
		p := &ProcessOpener{Command: "sleep", Args: []string{"60"}}
		require.NoError(t, p.OpenStream(context.Background()))

		// A second start while running is rejected.
		assert.Error(t, p.OpenStream(context.Background()))

		p.Stop()
		p.Stop() // idempotent
	})

	t.Run("missing command fails", func(t *testing.T) {
		p := &ProcessOpener{Command: "definitely-not-a-real-recorder"}
		assert.Error(t, p.OpenStream(context.Background()))
	})
}
