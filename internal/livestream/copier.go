package livestream

import (
	"context"
	"errors"
	"io"
	"time"
)

// copyOptions controls a single segment copy.
type copyOptions struct {
	// seekBackBytes, when positive, seeks that many bytes back from the end of
	// the input before the first read. Used to drop a late-attaching consumer
	// near the live edge.
	seekBackBytes int64
	// emptyReadLimit is how many consecutive zero-byte reads are tolerated
	// before the segment is considered finished.
	emptyReadLimit int
	chunkSize      int
	pollInterval   time.Duration
}

// copySegment copies a growing input file to the sink until the empty-read
// limit is exhausted, the context fires, or an I/O error occurs.
//
// A zero-byte read means the writer has not produced more data yet, not
// end-of-stream: the loop sleeps one poll interval and tries again, up to the
// caller's limit. Any read that returns data resets the tolerance. EOF from a
// file whose writer is still appending is an empty read like any other.
func copySegment(ctx context.Context, r io.Reader, w io.Writer, opts copyOptions) error {
	if opts.seekBackBytes > 0 {
		trySeekFromEnd(r, opts.seekBackBytes)
	}

	buf := make([]byte, opts.chunkSize)
	emptyReads := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			emptyReads = 0
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			continue
		}

		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		emptyReads++
		if emptyReads >= opts.emptyReadLimit {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.pollInterval):
		}
	}
}

// trySeekFromEnd positions r back bytes before the end. Inputs that are not
// seekable, or shorter than back, start from wherever they are: the seek is
// best-effort and a failed relative seek clamps to the start of the file.
func trySeekFromEnd(r io.Reader, back int64) {
	s, ok := r.(io.Seeker)
	if !ok {
		return
	}
	if _, err := s.Seek(-back, io.SeekEnd); err != nil {
		_, _ = s.Seek(0, io.SeekStart)
	}
}
