package livestream

import "strings"

// nextSegment resolves which file a consumer should read after current, and
// whether that file is the last known segment.
//
// With no current file, the consumer is attaching fresh: it starts at the
// newest file, which is by definition the last known segment. Otherwise the
// file after current is returned. A segment counts as "last" while it sits
// inside the volatile tail of the list, where the recorder may still be
// writing; volatileTail is the number of trailing files treated that way
// (the recorder typically keeps exactly one rotation buffered ahead).
//
// A current file that is no longer in the list has been rotated away; the
// lookup yields no next file rather than an error.
func nextSegment(paths []string, current string, volatileTail int) (string, bool) {
	if len(paths) == 0 {
		return "", false
	}

	if current == "" {
		return paths[len(paths)-1], true
	}

	index := -1
	for i, p := range paths {
		if strings.EqualFold(p, current) {
			index = i
			break
		}
	}
	if index == -1 {
		return "", false
	}

	next := index + 1
	if next >= len(paths) {
		return "", false
	}

	return paths[next], next == len(paths)-1-volatileTail
}
