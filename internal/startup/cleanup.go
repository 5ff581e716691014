// Package startup provides utilities for application startup tasks.
package startup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmylchreest/tunecast/internal/livestream"
)

// CleanupOrphanedTempFiles removes live capture temp files left behind by an
// unclean shutdown. It looks for files matching "tunecast-live-*" in the
// specified directory and removes those older than maxAge; anything newer may
// belong to a session on another instance sharing the directory.
//
// Returns the number of files removed and any error encountered.
func CleanupOrphanedTempFiles(logger *slog.Logger, dir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("temp directory does not exist, skipping cleanup",
			"path", dir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", dir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), livestream.TempFilePrefix) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get file info",
				"path", path,
				"error", err,
			)
			continue
		}

		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent temp file",
				"path", path,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove orphaned temp file",
				"path", path,
				"error", err,
			)
			continue
		}

		logger.Info("removed orphaned temp file",
			"path", path,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		removed++
	}

	return removed, nil
}

// DefaultCleanupAge is the default maximum age for orphaned temp files (1 hour).
const DefaultCleanupAge = 1 * time.Hour

// CleanupSystemTempFiles cleans up orphaned tunecast temp files from the system
// temp directory using the default cleanup age.
func CleanupSystemTempFiles(logger *slog.Logger) (int, error) {
	return CleanupOrphanedTempFiles(logger, os.TempDir(), DefaultCleanupAge)
}
