package livestream

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxSessions int) *Manager {
	t.Helper()
	return NewManager(NewTempPathAllocator(t.TempDir()), testSessionConfig(), maxSessions, nil)
}

func TestManagerOpenStream(t *testing.T) {
	t.Run("creates a session with the path rewritten to the temp file", func(t *testing.T) {
		m := newTestManager(t, 10)

		sess, err := m.OpenStream(context.Background(), OpenRequest{
			MediaSource: testMediaSource(),
			TunerHostID: "tuner-1",
		})
		require.NoError(t, err)

		assert.Equal(t, 1, sess.ConsumerCount())
		assert.Equal(t, sess.TempFilePath(), sess.MediaSource().Path)
		assert.Equal(t, "http://tuner.local/stream/42", sess.OriginalMediaSource().Path)
		assert.Contains(t, sess.TempFilePath(), TempFilePrefix+sess.ID().String())
		assert.Equal(t, 1, m.SessionCount())
	})

	t.Run("requires a media source", func(t *testing.T) {
		m := newTestManager(t, 10)
		_, err := m.OpenStream(context.Background(), OpenRequest{})
		assert.Error(t, err)
	})

	t.Run("shares a session between consumers of the same source", func(t *testing.T) {
		m := newTestManager(t, 10)

		first, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)

		second, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)

		assert.Equal(t, first.ID(), second.ID())
		assert.Equal(t, 2, first.ConsumerCount())
		assert.Equal(t, 1, m.SessionCount())
	})

	t.Run("different sources get different sessions", func(t *testing.T) {
		m := newTestManager(t, 10)

		first, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)

		other := testMediaSource()
		other.ID = "channel-7"
		second, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: other})
		require.NoError(t, err)

		assert.NotEqual(t, first.ID(), second.ID())
		assert.Equal(t, 2, m.SessionCount())
	})

	t.Run("enforces the session limit", func(t *testing.T) {
		m := newTestManager(t, 1)

		_, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)

		other := testMediaSource()
		other.ID = "channel-7"
		_, err = m.OpenStream(context.Background(), OpenRequest{MediaSource: other})
		assert.ErrorIs(t, err, ErrMaxSessions)
	})

	t.Run("opener failures do not register a session", func(t *testing.T) {
		m := newTestManager(t, 10)

		_, err := m.OpenStream(context.Background(), OpenRequest{
			MediaSource: testMediaSource(),
			Opener: OpenerFunc(func(ctx context.Context) error {
				return os.ErrPermission
			}),
		})
		assert.ErrorIs(t, err, ErrSourceUnavailable)
		assert.Zero(t, m.SessionCount())
	})

	t.Run("rotating sources use the segment glob", func(t *testing.T) {
		m := newTestManager(t, 10)

		sess, err := m.OpenStream(context.Background(), OpenRequest{
			MediaSource: testMediaSource(),
			Rotating:    true,
		})
		require.NoError(t, err)

		// No segment files exist yet, so a rotating source lists nothing
		// rather than the unwritten temp path.
		assert.Empty(t, sess.segmentSource().Segments())
	})
}

func TestManagerReleaseConsumer(t *testing.T) {
	t.Run("last release tears the session down", func(t *testing.T) {
		m := newTestManager(t, 10)

		sess, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(sess.TempFilePath(), []byte("data"), 0o644))

		_, err = m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)

		require.NoError(t, m.ReleaseConsumer(sess.ID()))
		assert.Equal(t, 1, m.SessionCount())
		assert.False(t, sess.Closed())
		assert.FileExists(t, sess.TempFilePath())

		require.NoError(t, m.ReleaseConsumer(sess.ID()))
		assert.Zero(t, m.SessionCount())
		assert.True(t, sess.Closed())
		assert.NoFileExists(t, sess.TempFilePath())
	})

	t.Run("unknown session", func(t *testing.T) {
		m := newTestManager(t, 10)
		assert.ErrorIs(t, m.ReleaseConsumer(uuid.New()), ErrSessionNotFound)
	})

	t.Run("source can be reopened after teardown", func(t *testing.T) {
		m := newTestManager(t, 10)

		first, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)
		require.NoError(t, m.ReleaseConsumer(first.ID()))

		second, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID(), second.ID())
	})
}

func TestManagerCloseSession(t *testing.T) {
	m := newTestManager(t, 10)

	sess, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
	require.NoError(t, err)
	_, err = m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
	require.NoError(t, err)

	// Force close ignores the remaining consumer.
	require.NoError(t, m.CloseSession(sess.ID()))
	assert.True(t, sess.Closed())
	assert.Zero(t, m.SessionCount())

	assert.ErrorIs(t, m.CloseSession(sess.ID()), ErrSessionNotFound)
}

func TestManagerCloseAll(t *testing.T) {
	m := newTestManager(t, 10)

	a, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
	require.NoError(t, err)

	other := testMediaSource()
	other.ID = "channel-7"
	b, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: other})
	require.NoError(t, err)

	m.CloseAll()
	assert.Zero(t, m.SessionCount())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestManagerStats(t *testing.T) {
	m := newTestManager(t, 10)

	_, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
	require.NoError(t, err)
	_, err = m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 2, stats.TotalConsumers)
	require.Len(t, stats.Sessions, 1)
	assert.Equal(t, 2, stats.Sessions[0].ConsumerCount)
}

func TestManagerGetSession(t *testing.T) {
	m := newTestManager(t, 10)

	sess, err := m.OpenStream(context.Background(), OpenRequest{MediaSource: testMediaSource()})
	require.NoError(t, err)

	got, err := m.GetSession(sess.ID())
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), got.ID())

	_, err = m.GetSession(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
