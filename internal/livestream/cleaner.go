package livestream

import (
	"log/slog"
	"os"
	"time"
)

// FileCleaner deletes session temp files with bounded retries. Deletion is
// best-effort cleanup: a file that cannot be removed after the retry ceiling
// is logged and left behind rather than surfaced as an error, since the only
// cost is leaked temp disk space.
type FileCleaner struct {
	logger      *slog.Logger
	maxAttempts int
	retryDelay  time.Duration

	// Seams for tests.
	remove func(string) error
	sleep  func(time.Duration)
}

// NewFileCleaner creates a cleaner that retries failed deletions up to
// maxAttempts times with a fixed retryDelay between rounds.
func NewFileCleaner(logger *slog.Logger, maxAttempts int, retryDelay time.Duration) *FileCleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FileCleaner{
		logger:      logger,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		remove:      os.Remove,
		sleep:       time.Sleep,
	}
}

// RemoveAll deletes the given paths. Missing files count as already deleted.
// Paths whose deletion keeps failing are retried as a shrinking subset until
// they succeed or the attempt ceiling is reached.
func (c *FileCleaner) RemoveAll(paths []string) {
	remaining := paths

	for attempt := 1; ; attempt++ {
		var failed []string

		for _, path := range remaining {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}

			if err := c.remove(path); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				c.logger.Debug("failed to delete temp file",
					slog.String("path", path),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()),
				)
				failed = append(failed, path)
				continue
			}

			c.logger.Debug("deleted temp file", slog.String("path", path))
		}

		if len(failed) == 0 {
			return
		}

		if attempt >= c.maxAttempts {
			c.logger.Warn("giving up deleting temp files",
				slog.Int("remaining", len(failed)),
				slog.Int("attempts", attempt),
			)
			return
		}

		remaining = failed
		c.sleep(c.retryDelay)
	}
}
