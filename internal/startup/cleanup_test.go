package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCleanupOrphanedTempFiles(t *testing.T) {
	t.Run("removes old tunecast-live files", func(t *testing.T) {
		logger := newTestLogger()
		dir := t.TempDir()

		oldFile := filepath.Join(dir, "tunecast-live-01HZ1234.ts")
		require.NoError(t, os.WriteFile(oldFile, []byte("stale"), 0644))

		oldTime := time.Now().Add(-2 * time.Hour)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

		count, err := CleanupOrphanedTempFiles(logger, dir, 1*time.Hour)
		require.NoError(t, err)

		assert.Equal(t, 1, count)
		_, err = os.Stat(oldFile)
		assert.True(t, os.IsNotExist(err), "old file should be removed")
	})

	t.Run("preserves recent tunecast-live files", func(t *testing.T) {
		logger := newTestLogger()
		dir := t.TempDir()

		recentFile := filepath.Join(dir, "tunecast-live-01HZ5678.ts")
		require.NoError(t, os.WriteFile(recentFile, []byte("live"), 0644))

		recentTime := time.Now().Add(-30 * time.Minute)
		require.NoError(t, os.Chtimes(recentFile, recentTime, recentTime))

		count, err := CleanupOrphanedTempFiles(logger, dir, 1*time.Hour)
		require.NoError(t, err)

		assert.Equal(t, 0, count)
		_, err = os.Stat(recentFile)
		assert.NoError(t, err, "recent file should be preserved")
	})

	t.Run("ignores unrelated files and directories", func(t *testing.T) {
		logger := newTestLogger()
		dir := t.TempDir()

		otherFile := filepath.Join(dir, "some-other-file.ts")
		require.NoError(t, os.WriteFile(otherFile, []byte("data"), 0644))

		otherDir := filepath.Join(dir, "tunecast-live-lookalike-dir")
		require.NoError(t, os.Mkdir(otherDir, 0755))

		oldTime := time.Now().Add(-2 * time.Hour)
		require.NoError(t, os.Chtimes(otherFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(otherDir, oldTime, oldTime))

		count, err := CleanupOrphanedTempFiles(logger, dir, 1*time.Hour)
		require.NoError(t, err)

		assert.Equal(t, 0, count)
		_, err = os.Stat(otherFile)
		assert.NoError(t, err, "unrelated file should be preserved")
		_, err = os.Stat(otherDir)
		assert.NoError(t, err, "directory should be preserved even with matching prefix")
	})

	t.Run("missing directory is not an error", func(t *testing.T) {
		logger := newTestLogger()

		count, err := CleanupOrphanedTempFiles(logger, filepath.Join(t.TempDir(), "missing"), 1*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
