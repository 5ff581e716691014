// Package livestream exposes in-progress tuner captures on disk as continuous
// byte streams. A recorder process writes one growing file (or a rotating set
// of segment files) while sessions track the moving write frontier and relay
// the bytes to one or more consumers, starting near the live edge.
package livestream

import "time"

// Config holds the relay tunables shared by sessions and the manager.
type Config struct {
	// WarmupThreshold is how long a session must have been open before a newly
	// attaching consumer is fast-forwarded near the live edge instead of being
	// given the capture from its start.
	WarmupThreshold time.Duration
	// SeekBackBytes is how far from the end of the first segment a live-edge
	// consumer starts reading.
	SeekBackBytes int64
	// ChunkSize is the read buffer size for segment copies.
	ChunkSize int
	// PollInterval is the delay between consecutive empty reads.
	PollInterval time.Duration
	// EmptyReadLimit bounds polling on segments the recorder has moved past:
	// EOF there means the next rotation already exists, so give up quickly.
	EmptyReadLimit int
	// TailEmptyReadLimit bounds polling on the last known segment, which may
	// still be actively written; at the default poll interval this tolerates
	// tens of seconds of writer pause.
	TailEmptyReadLimit int
	// VolatileTailSegments is how many trailing segments are treated as still
	// volatile when deciding whether a segment is the last known one.
	VolatileTailSegments int
	// CleanupAttempts is the retry ceiling for temp file deletion.
	CleanupAttempts int
	// CleanupRetryDelay is the fixed delay between cleanup retry rounds.
	CleanupRetryDelay time.Duration
}

// DefaultConfig returns the relay defaults.
func DefaultConfig() Config {
	return Config{
		WarmupThreshold:      10 * time.Second,
		SeekBackBytes:        20000,
		ChunkSize:            64 * 1024,
		PollInterval:         50 * time.Millisecond,
		EmptyReadLimit:       2,
		TailEmptyReadLimit:   1000,
		VolatileTailSegments: 1,
		CleanupAttempts:      40,
		CleanupRetryDelay:    500 * time.Millisecond,
	}
}
