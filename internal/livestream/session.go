package livestream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmylchreest/tunecast/internal/models"
)

// Session exposes one live capture as a byte stream. The identity, temp paths
// and open timestamp are fixed at construction/open time; consumer accounting
// and the sharing flag are mutated through the owning Manager.
type Session struct {
	id                  uuid.UUID
	originalMediaSource *models.MediaSourceInfo
	mediaSource         *models.MediaSourceInfo
	tunerHostID         string
	cfg                 Config
	logger              *slog.Logger
	cleaner             *FileCleaner

	source       SegmentSource
	opener       Opener
	tempFilePath string

	// ctx is the session-scoped cancellation: firing it is the sole
	// authoritative way to stop all in-flight copy loops.
	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.RWMutex
	consumerCount  int
	sharingEnabled bool
	opened         bool
	closed         bool
	dateOpened     time.Time
}

// NewSession creates a session for the given media source. The session id is
// generated once here and is stable for the session's lifetime; temp file
// names and consumer correlation derive from it.
func NewSession(mediaSource *models.MediaSourceInfo, tunerHostID string, cfg Config) *Session {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	logger := slog.Default().With(
		slog.String("component", "livestream"),
		slog.String("session_id", id.String()),
	)

	return &Session{
		id:                  id,
		originalMediaSource: mediaSource.Clone(),
		mediaSource:         mediaSource.Clone(),
		tunerHostID:         tunerHostID,
		cfg:                 cfg,
		logger:              logger,
		cleaner:             NewFileCleaner(logger, cfg.CleanupAttempts, cfg.CleanupRetryDelay),
		sharingEnabled:      true,
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// WithLogger sets the logger for the session.
func (s *Session) WithLogger(logger *slog.Logger) *Session {
	logger = logger.With(slog.String("session_id", s.id.String()))
	s.logger = logger
	s.cleaner = NewFileCleaner(logger, s.cfg.CleanupAttempts, s.cfg.CleanupRetryDelay)
	return s
}

// WithTempFile sets the temp file path owned by this session.
func (s *Session) WithTempFile(path string) *Session {
	s.tempFilePath = path
	return s
}

// WithSegmentSource sets the segment source. Without one, the session falls
// back to reading its temp file as a single growing capture.
func (s *Session) WithSegmentSource(source SegmentSource) *Session {
	s.source = source
	return s
}

// WithOpener sets the source-specific open hook, e.g. one that launches an
// external recorder process.
func (s *Session) WithOpener(opener Opener) *Session {
	s.opener = opener
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// TunerHostID returns the identifier of the tuner that produced this capture,
// or empty when the source is not tuner-backed.
func (s *Session) TunerHostID() string { return s.tunerHostID }

// TempFilePath returns the temp file path owned by this session.
func (s *Session) TempFilePath() string { return s.tempFilePath }

// MediaSource returns the mutable media source descriptor. Its path is
// rewritten to the temp file when the session is handed to consumers.
func (s *Session) MediaSource() *models.MediaSourceInfo { return s.mediaSource }

// OriginalMediaSource returns the descriptor as provided by the capture
// subsystem, never mutated after construction.
func (s *Session) OriginalMediaSource() *models.MediaSourceInfo { return s.originalMediaSource }

// DateOpened returns when Open succeeded, or the zero time before that.
func (s *Session) DateOpened() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dateOpened
}

// ConsumerCount returns the number of attached consumers.
func (s *Session) ConsumerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consumerCount
}

// SharingEnabled reports whether the session may be handed to additional
// consumers. Once Close has run this is false for the session's remaining life.
func (s *Session) SharingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sharingEnabled && !s.closed
}

// Closed reports whether Close has been invoked.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// AddConsumer records a new consumer attaching to the session. It fails once
// sharing has been disabled.
func (s *Session) AddConsumer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.sharingEnabled {
		return ErrSessionClosed
	}
	s.consumerCount++
	return nil
}

// RemoveConsumer records a consumer detaching and returns the remaining count.
// The count never goes negative.
func (s *Session) RemoveConsumer() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumerCount > 0 {
		s.consumerCount--
	}
	return s.consumerCount
}

// Open prepares the session for delivery and records the open timestamp.
// It must be called exactly once. When an Opener is configured its failure is
// surfaced as ErrSourceUnavailable; the base behaviour always succeeds.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.opened {
		return ErrAlreadyOpened
	}

	if s.opener != nil {
		if err := s.opener.OpenStream(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
	}

	s.dateOpened = time.Now()
	s.opened = true

	s.logger.Info("live stream session opened",
		slog.String("media_source_id", s.mediaSource.ID),
		slog.String("temp_file", s.tempFilePath),
	)
	return nil
}

// StreamTo relays the capture's bytes into w until the broadcast finishes or
// either the caller's context or the session-scoped cancellation fires.
// Cancellation is a normal termination and returns nil.
//
// Multiple consumers may invoke StreamTo on the same session concurrently;
// each invocation tracks its own position in the segment sequence.
func (s *Session) StreamTo(ctx context.Context, w io.Writer) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSessionClosed
	}
	if !s.opened {
		s.mu.RUnlock()
		return ErrNotOpened
	}
	opened := s.dateOpened
	s.mu.RUnlock()

	// Effective cancellation: caller disconnect or session Close, whichever
	// fires first.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	// A consumer attaching well into a running broadcast is fast-forwarded
	// near the live edge. One attaching at the very start gets the capture in
	// full, so the warmup window is never skipped over.
	seekNearEdge := time.Since(opened) > s.cfg.WarmupThreshold

	current, isLast := s.nextFile("")
	for current != "" {
		s.logger.Debug("copying segment",
			slog.String("path", current),
			slog.Bool("seek", seekNearEdge),
			slog.Bool("last_known", isLast),
		)

		if err := s.copyFile(ctx, current, seekNearEdge, isLast, w); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		// The live-edge seek applies only to the very first file of this
		// invocation; later rotations are read from their start.
		seekNearEdge = false
		current, isLast = s.nextFile(current)
	}

	s.logger.Debug("no further segments, ending delivery")
	return nil
}

// nextFile re-lists the segments and resolves the file after current.
func (s *Session) nextFile(current string) (string, bool) {
	return nextSegment(s.segmentSource().Segments(), current, s.cfg.VolatileTailSegments)
}

// copyFile copies one segment to the sink. Only the last known segment can
// still be actively written, so it gets the long empty-read tolerance; a
// non-final segment reaching EOF means the recorder has moved on.
func (s *Session) copyFile(ctx context.Context, path string, seek, isLast bool, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening segment: %w", err)
	}
	defer f.Close()

	limit := s.cfg.EmptyReadLimit
	if isLast {
		limit = s.cfg.TailEmptyReadLimit
	}

	opts := copyOptions{
		emptyReadLimit: limit,
		chunkSize:      s.cfg.ChunkSize,
		pollInterval:   s.cfg.PollInterval,
	}
	if seek {
		opts.seekBackBytes = s.cfg.SeekBackBytes
	}

	return copySegment(ctx, f, w, opts)
}

// segmentSource returns the configured source, defaulting to the temp file as
// a single growing capture.
func (s *Session) segmentSource() SegmentSource {
	if s.source != nil {
		return s.source
	}
	return SingleFileSource{Path: s.tempFilePath}
}

// Close disables sharing irreversibly and fires the session-scoped
// cancellation so all in-flight copy loops terminate within one polling
// interval. Safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.sharingEnabled = false
	s.mu.Unlock()

	s.cancel()

	if stopper, ok := s.opener.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	s.logger.Info("live stream session closed")
	return nil
}

// DeleteTempFiles removes every on-disk artifact this session created.
// Deletions are retried with fixed backoff; exhausting the retries is logged,
// not escalated.
func (s *Session) DeleteTempFiles() error {
	paths := s.segmentSource().Segments()

	if s.tempFilePath != "" {
		found := false
		for _, p := range paths {
			if strings.EqualFold(p, s.tempFilePath) {
				found = true
				break
			}
		}
		if !found {
			paths = append(paths, s.tempFilePath)
		}
	}

	s.cleaner.RemoveAll(paths)
	return nil
}

// SessionStats holds a point-in-time snapshot of a session.
type SessionStats struct {
	ID             string    `json:"id"`
	MediaSourceID  string    `json:"media_source_id,omitempty"`
	TunerHostID    string    `json:"tuner_host_id,omitempty"`
	Container      string    `json:"container,omitempty"`
	DateOpened     time.Time `json:"date_opened,omitzero"`
	ConsumerCount  int       `json:"consumer_count"`
	SharingEnabled bool      `json:"sharing_enabled"`
	Closed         bool      `json:"closed"`
	SegmentCount   int       `json:"segment_count"`
}

// Stats returns session statistics.
func (s *Session) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionStats{
		ID:             s.id.String(),
		MediaSourceID:  s.mediaSource.ID,
		TunerHostID:    s.tunerHostID,
		Container:      s.mediaSource.Container,
		DateOpened:     s.dateOpened,
		ConsumerCount:  s.consumerCount,
		SharingEnabled: s.sharingEnabled && !s.closed,
		Closed:         s.closed,
		SegmentCount:   len(s.segmentSource().Segments()),
	}
}
