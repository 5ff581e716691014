package livestream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTempPathAllocator(t *testing.T) {
	t.Run("file path under the configured root", func(t *testing.T) {
		a := NewTempPathAllocator("/data/transcodes")
		assert.Equal(t,
			filepath.Join("/data/transcodes", "tunecast-live-abc123.ts"),
			a.FilePath("abc123", "ts"),
		)
	})

	t.Run("empty extension falls back to ts", func(t *testing.T) {
		a := NewTempPathAllocator("/data/transcodes")
		assert.Equal(t,
			filepath.Join("/data/transcodes", "tunecast-live-abc123.ts"),
			a.FilePath("abc123", ""),
		)
	})

	t.Run("empty root falls back to the os temp dir", func(t *testing.T) {
		a := NewTempPathAllocator("")
		assert.Equal(t, os.TempDir(), a.Root())
	})

	t.Run("segment pattern matches rotated files", func(t *testing.T) {
		dir := t.TempDir()
		a := NewTempPathAllocator(dir)

		for _, name := range []string{
			"tunecast-live-abc123.ts",
			"tunecast-live-abc1230.ts",
			"tunecast-live-abc1231.ts",
			"tunecast-live-other.ts",
			"unrelated.ts",
		} {
			assert.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}

		matches, err := filepath.Glob(a.SegmentPattern("abc123", "ts"))
		assert.NoError(t, err)
		assert.Len(t, matches, 3)
	})
}
