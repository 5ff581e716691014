package livestream

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix is the prefix used for tunecast live capture temp files.
// The startup orphan sweep recognises leftovers by this prefix.
const TempFilePrefix = "tunecast-live-"

// defaultExtension is used when a media source does not declare a container.
const defaultExtension = "ts"

// TempPathAllocator derives unique, collision-free temp file paths for live
// stream sessions from a temp directory root and the session id.
type TempPathAllocator struct {
	root string
}

// NewTempPathAllocator creates an allocator rooted at dir.
// An empty dir falls back to the operating system temp directory.
func NewTempPathAllocator(dir string) *TempPathAllocator {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempPathAllocator{root: dir}
}

// Root returns the temp directory the allocator derives paths under.
func (a *TempPathAllocator) Root() string {
	return a.root
}

// FilePath returns the temp file path for a session id.
func (a *TempPathAllocator) FilePath(id, extension string) string {
	if extension == "" {
		extension = defaultExtension
	}
	return filepath.Join(a.root, fmt.Sprintf("%s%s.%s", TempFilePrefix, id, extension))
}

// SegmentPattern returns the glob pattern matching all rotated segment files
// for a session id. Segment-rotating recorders append a sequence number
// between the id and the extension.
func (a *TempPathAllocator) SegmentPattern(id, extension string) string {
	if extension == "" {
		extension = defaultExtension
	}
	return filepath.Join(a.root, fmt.Sprintf("%s%s*.%s", TempFilePrefix, id, extension))
}
