package livestream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSegment(t *testing.T) {
	paths := []string{"seg-000.ts", "seg-001.ts", "seg-002.ts", "seg-003.ts"}

	t.Run("no current attaches at newest file marked last", func(t *testing.T) {
		next, isLast := nextSegment(paths, "", 1)
		assert.Equal(t, "seg-003.ts", next)
		assert.True(t, isLast)
	})

	t.Run("advances to the following file", func(t *testing.T) {
		next, isLast := nextSegment(paths, "seg-000.ts", 1)
		assert.Equal(t, "seg-001.ts", next)
		assert.False(t, isLast)
	})

	t.Run("last when one volatile file remains after it", func(t *testing.T) {
		next, isLast := nextSegment(paths, "seg-001.ts", 1)
		assert.Equal(t, "seg-002.ts", next)
		assert.True(t, isLast)
	})

	t.Run("file inside the volatile tail is not last", func(t *testing.T) {
		next, isLast := nextSegment(paths, "seg-002.ts", 1)
		assert.Equal(t, "seg-003.ts", next)
		assert.False(t, isLast)
	})

	t.Run("no file after the newest", func(t *testing.T) {
		next, isLast := nextSegment(paths, "seg-003.ts", 1)
		assert.Empty(t, next)
		assert.False(t, isLast)
	})

	t.Run("rotated-away current yields no next file", func(t *testing.T) {
		next, isLast := nextSegment(paths, "seg-999.ts", 1)
		assert.Empty(t, next)
		assert.False(t, isLast)
	})

	t.Run("empty list", func(t *testing.T) {
		next, isLast := nextSegment(nil, "", 1)
		assert.Empty(t, next)
		assert.False(t, isLast)

		next, isLast = nextSegment(nil, "seg-000.ts", 1)
		assert.Empty(t, next)
		assert.False(t, isLast)
	})

	t.Run("path comparison is case-insensitive", func(t *testing.T) {
		next, isLast := nextSegment(paths, "SEG-001.TS", 1)
		assert.Equal(t, "seg-002.ts", next)
		assert.True(t, isLast)
	})

	t.Run("zero volatile tail marks the newest file last", func(t *testing.T) {
		next, isLast := nextSegment(paths, "seg-002.ts", 0)
		assert.Equal(t, "seg-003.ts", next)
		assert.True(t, isLast)

		next, isLast = nextSegment(paths, "seg-001.ts", 0)
		assert.Equal(t, "seg-002.ts", next)
		assert.False(t, isLast)
	})

	t.Run("two files with default tail", func(t *testing.T) {
		two := []string{"seg-000.ts", "seg-001.ts"}
		next, isLast := nextSegment(two, "seg-000.ts", 1)
		assert.Equal(t, "seg-001.ts", next)
		assert.False(t, isLast)
	})
}
