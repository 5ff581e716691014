// Package models contains the domain types shared across tunecast.
package models

// MediaSourceInfo describes the media properties of a live capture as reported
// by the capture subsystem. The byte stream itself is opaque; these fields are
// metadata for consumers deciding how to play it.
type MediaSourceInfo struct {
	ID string `json:"id"`
	// Path is where the capture is read from. For an opened live stream this is
	// rewritten to the session's temp file.
	Path       string `json:"path"`
	Protocol   string `json:"protocol,omitempty"`
	Container  string `json:"container,omitempty"`
	VideoCodec string `json:"video_codec,omitempty"`
	AudioCodec string `json:"audio_codec,omitempty"`
	Bitrate    int64  `json:"bitrate,omitempty"`
	// IsInfiniteStream is true for live broadcasts with no known duration.
	IsInfiniteStream bool `json:"is_infinite_stream,omitempty"`
}

// Clone returns a copy of the media source that can be mutated independently.
func (m *MediaSourceInfo) Clone() *MediaSourceInfo {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}
