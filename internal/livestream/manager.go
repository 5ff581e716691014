package livestream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmylchreest/tunecast/internal/models"
)

// Manager owns the set of live stream sessions. It shares sessions between
// consumers tuned to the same source, tracks consumer counts, and tears a
// session down (close, then temp file cleanup) when its last consumer leaves.
type Manager struct {
	allocator   *TempPathAllocator
	cfg         Config
	maxSessions int
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	bySource map[string]uuid.UUID
}

// NewManager creates a manager. maxSessions bounds the number of concurrently
// open sessions; zero or negative means unlimited.
func NewManager(allocator *TempPathAllocator, cfg Config, maxSessions int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		allocator:   allocator,
		cfg:         cfg,
		maxSessions: maxSessions,
		logger:      logger.With(slog.String("component", "livestream-manager")),
		sessions:    make(map[uuid.UUID]*Session),
		bySource:    make(map[string]uuid.UUID),
	}
}

// OpenRequest describes the source a consumer wants to stream.
type OpenRequest struct {
	// MediaSource describes the broadcast. Its Path initially points at the
	// upstream source; the session rewrites it to the local temp file.
	MediaSource *models.MediaSourceInfo
	// TunerHostID identifies the tuner serving the capture, if any.
	TunerHostID string
	// Rotating marks recorders that split the capture across numbered segment
	// files instead of one growing file.
	Rotating bool
	// Opener optionally starts the capture (e.g. launches a recorder process).
	Opener Opener
}

// OpenStream returns a session for the requested source, attaching the caller
// as a consumer. An existing session for the same source is reused while its
// sharing is enabled; otherwise a new session is created and opened.
func (m *Manager) OpenStream(ctx context.Context, req OpenRequest) (*Session, error) {
	if req.MediaSource == nil {
		return nil, fmt.Errorf("open stream: media source is required")
	}

	key := sourceKey(req.TunerHostID, req.MediaSource)

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.bySource[key]; ok {
		if sess, ok := m.sessions[id]; ok && sess.AddConsumer() == nil {
			m.logger.Debug("reusing live stream session",
				slog.String("session_id", id.String()),
				slog.Int("consumers", sess.ConsumerCount()),
			)
			return sess, nil
		}
		// Stale mapping to a closed session.
		delete(m.bySource, key)
	}

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrMaxSessions
	}

	sess := NewSession(req.MediaSource, req.TunerHostID, m.cfg).WithLogger(m.logger)

	ext := req.MediaSource.Container
	tempPath := m.allocator.FilePath(sess.ID().String(), ext)
	sess.WithTempFile(tempPath)

	if req.Rotating {
		sess.WithSegmentSource(GlobSource{Pattern: m.allocator.SegmentPattern(sess.ID().String(), ext)})
	} else {
		sess.WithSegmentSource(SingleFileSource{Path: tempPath})
	}
	if req.Opener != nil {
		sess.WithOpener(req.Opener)
	}

	// Consumers read the capture from disk, not from the upstream source.
	sess.MediaSource().Path = tempPath

	if err := sess.Open(ctx); err != nil {
		return nil, fmt.Errorf("opening live stream: %w", err)
	}
	if err := sess.AddConsumer(); err != nil {
		return nil, err
	}

	m.sessions[sess.ID()] = sess
	m.bySource[key] = sess.ID()

	m.logger.Info("live stream session created",
		slog.String("session_id", sess.ID().String()),
		slog.String("source", req.MediaSource.ID),
		slog.Int("active_sessions", len(m.sessions)),
	)
	return sess, nil
}

// GetSession looks up a session by id.
func (m *Manager) GetSession(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ReleaseConsumer detaches one consumer from the session. When the last
// consumer leaves, the session is closed and its temp files are deleted.
func (m *Manager) ReleaseConsumer(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}

	if remaining := sess.RemoveConsumer(); remaining > 0 {
		m.mu.Unlock()
		m.logger.Debug("consumer released",
			slog.String("session_id", id.String()),
			slog.Int("consumers", remaining),
		)
		return nil
	}

	m.unregisterLocked(sess)
	m.mu.Unlock()

	return m.teardown(sess)
}

// CloseSession force-closes a session regardless of remaining consumers.
func (m *Manager) CloseSession(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	m.unregisterLocked(sess)
	m.mu.Unlock()

	return m.teardown(sess)
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		open = append(open, sess)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.bySource = make(map[string]uuid.UUID)
	m.mu.Unlock()

	for _, sess := range open {
		if err := m.teardown(sess); err != nil {
			m.logger.Warn("closing session on shutdown",
				slog.String("session_id", sess.ID().String()),
				slog.Any("error", err),
			)
		}
	}
}

// SessionCount returns the number of open sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ManagerStats holds a point-in-time snapshot of all sessions.
type ManagerStats struct {
	ActiveSessions int            `json:"active_sessions"`
	TotalConsumers int            `json:"total_consumers"`
	Sessions       []SessionStats `json:"sessions"`
}

// Stats returns manager-wide statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ManagerStats{
		ActiveSessions: len(m.sessions),
		Sessions:       make([]SessionStats, 0, len(m.sessions)),
	}
	for _, sess := range m.sessions {
		s := sess.Stats()
		stats.TotalConsumers += s.ConsumerCount
		stats.Sessions = append(stats.Sessions, s)
	}
	return stats
}

// unregisterLocked removes the session from both indexes. Caller holds m.mu.
func (m *Manager) unregisterLocked(sess *Session) {
	delete(m.sessions, sess.ID())
	for key, id := range m.bySource {
		if id == sess.ID() {
			delete(m.bySource, key)
		}
	}
}

// teardown closes the session and deletes its temp files.
func (m *Manager) teardown(sess *Session) error {
	if err := sess.Close(); err != nil {
		return err
	}
	if err := sess.DeleteTempFiles(); err != nil {
		return err
	}
	m.logger.Info("live stream session torn down",
		slog.String("session_id", sess.ID().String()),
	)
	return nil
}

// sourceKey identifies a broadcast for session sharing. Two consumers asking
// for the same source on the same tuner share one capture.
func sourceKey(tunerHostID string, ms *models.MediaSourceInfo) string {
	id := ms.ID
	if id == "" {
		id = ms.Path
	}
	return strings.ToLower(tunerHostID + "|" + id)
}
