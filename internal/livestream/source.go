package livestream

import (
	"path/filepath"
	"sort"
)

// SegmentSource lists the on-disk segment files of a live capture in write
// order. Implementations must tolerate being called repeatedly while the
// recorder is appending and rotating files.
type SegmentSource interface {
	Segments() []string
}

// SingleFileSource exposes a capture written as one ever-growing file, the
// shape produced by simple tuners.
type SingleFileSource struct {
	Path string
}

// Segments returns the single capture file.
func (s SingleFileSource) Segments() []string {
	return []string{s.Path}
}

// GlobSource exposes a capture split across rotating segment files matched by
// a glob pattern. Matches are sorted by name; recorders emit zero-padded
// sequence numbers so lexical order is write order.
type GlobSource struct {
	Pattern string
}

// Segments returns the current segment files, oldest first.
func (s GlobSource) Segments() []string {
	matches, err := filepath.Glob(s.Pattern)
	if err != nil {
		// Only malformed patterns error; treat as no segments yet.
		return nil
	}
	sort.Strings(matches)
	return matches
}

// StaticSource is a fixed list of segment paths, useful for tests and for
// captures that are no longer growing.
type StaticSource []string

// Segments returns the fixed path list.
func (s StaticSource) Segments() []string {
	return s
}
