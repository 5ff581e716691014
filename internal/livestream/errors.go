package livestream

import "errors"

// ErrSourceUnavailable is returned from Open when the underlying capture
// could not be started.
var ErrSourceUnavailable = errors.New("live stream source unavailable")

// ErrSessionClosed is returned when trying to use a closed session.
var ErrSessionClosed = errors.New("live stream session closed")

// ErrSessionNotFound is returned when a session lookup fails.
var ErrSessionNotFound = errors.New("live stream session not found")

// ErrAlreadyOpened is returned when Open is called more than once.
var ErrAlreadyOpened = errors.New("live stream session already opened")

// ErrNotOpened is returned when bytes are requested before Open succeeded.
var ErrNotOpened = errors.New("live stream session not opened")

// ErrMaxSessions is returned when the manager's session limit is reached.
var ErrMaxSessions = errors.New("maximum live stream sessions reached")
