package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmylchreest/tunecast/internal/livestream"
	"github.com/jmylchreest/tunecast/internal/models"
	"github.com/jmylchreest/tunecast/internal/version"
)

// LiveStreamHandler handles live stream session API endpoints and the raw
// byte-stream delivery route.
type LiveStreamHandler struct {
	manager *livestream.Manager
	logger  *slog.Logger
}

// NewLiveStreamHandler creates a new live stream handler.
func NewLiveStreamHandler(manager *livestream.Manager) *LiveStreamHandler {
	return &LiveStreamHandler{
		manager: manager,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *LiveStreamHandler) WithLogger(logger *slog.Logger) *LiveStreamHandler {
	h.logger = logger
	return h
}

// OpenLiveStreamInput is the input for opening a live stream session.
type OpenLiveStreamInput struct {
	Body struct {
		MediaSource models.MediaSourceInfo `json:"media_source" doc:"Broadcast source to capture"`
		TunerHostID string                 `json:"tuner_host_id,omitempty" doc:"Tuner serving the capture, if any"`
		Rotating    bool                   `json:"rotating,omitempty" doc:"Recorder splits the capture across rotating segment files"`
	}
}

// OpenLiveStreamOutput is the output for opening a live stream session.
type OpenLiveStreamOutput struct {
	Body struct {
		SessionID   string                  `json:"session_id" doc:"Identifier of the session"`
		StreamURL   string                  `json:"stream_url" doc:"Relative URL serving the live byte stream"`
		MediaSource *models.MediaSourceInfo `json:"media_source" doc:"Source descriptor with the path rewritten to the local capture"`
	}
}

// ListLiveStreamsInput is the input for listing sessions.
type ListLiveStreamsInput struct{}

// ListLiveStreamsOutput is the output for listing sessions.
type ListLiveStreamsOutput struct {
	Body livestream.ManagerStats
}

// GetLiveStreamInput is the input for fetching one session.
type GetLiveStreamInput struct {
	SessionID string `path:"sessionID" doc:"Session identifier"`
}

// GetLiveStreamOutput is the output for fetching one session.
type GetLiveStreamOutput struct {
	Body livestream.SessionStats
}

// CloseLiveStreamInput is the input for closing a session.
type CloseLiveStreamInput struct {
	SessionID string `path:"sessionID" doc:"Session identifier"`
	Force     bool   `query:"force" doc:"Close immediately even if other consumers are attached"`
}

// CloseLiveStreamOutput is the output for closing a session.
type CloseLiveStreamOutput struct {
	Body struct {
		SessionID string `json:"session_id"`
		Closed    bool   `json:"closed" doc:"True when the session was torn down, false when consumers remain"`
	}
}

// Register registers the live stream routes with the API (Huma routes).
// Note: the /live/{sessionID} byte-stream endpoint is registered via
// RegisterChiRoutes for raw HTTP handler access.
func (h *LiveStreamHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "openLiveStream",
		Method:      "POST",
		Path:        "/api/v1/livestreams",
		Summary:     "Open a live stream session",
		Description: "Opens a session for the given broadcast source, reusing an existing shared session when one is active. The caller holds one consumer slot until the session is closed via DELETE.",
		Tags:        []string{"Live Streams"},
	}, h.OpenLiveStream)

	huma.Register(api, huma.Operation{
		OperationID: "listLiveStreams",
		Method:      "GET",
		Path:        "/api/v1/livestreams",
		Summary:     "List live stream sessions",
		Description: "Returns all open sessions with their consumer counts",
		Tags:        []string{"Live Streams"},
	}, h.ListLiveStreams)

	huma.Register(api, huma.Operation{
		OperationID: "getLiveStream",
		Method:      "GET",
		Path:        "/api/v1/livestreams/{sessionID}",
		Summary:     "Get a live stream session",
		Tags:        []string{"Live Streams"},
	}, h.GetLiveStream)

	huma.Register(api, huma.Operation{
		OperationID: "closeLiveStream",
		Method:      "DELETE",
		Path:        "/api/v1/livestreams/{sessionID}",
		Summary:     "Close a live stream session",
		Description: "Releases the caller's consumer slot. The session is torn down and its temp files deleted once no consumers remain, or immediately with ?force=true.",
		Tags:        []string{"Live Streams"},
	}, h.CloseLiveStream)

	h.registerLiveStreamDocs(api)
}

// RegisterChiRoutes registers the byte-stream delivery route as a raw Chi
// handler. Huma's StreamResponse commits HTTP 200 before the body callback
// runs, which prevents pre-stream status and header control.
func (h *LiveStreamHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/live/{sessionID}", h.handleRawStream)
	router.Options("/live/{sessionID}", h.handleRawStreamOptions)
}

// OpenLiveStream opens (or joins) a session for a broadcast source.
func (h *LiveStreamHandler) OpenLiveStream(ctx context.Context, input *OpenLiveStreamInput) (*OpenLiveStreamOutput, error) {
	ms := input.Body.MediaSource
	if ms.Path == "" {
		return nil, huma.Error422UnprocessableEntity("media_source.path is required")
	}

	sess, err := h.manager.OpenStream(ctx, livestream.OpenRequest{
		MediaSource: &ms,
		TunerHostID: input.Body.TunerHostID,
		Rotating:    input.Body.Rotating,
	})
	if err != nil {
		switch {
		case errors.Is(err, livestream.ErrMaxSessions):
			return nil, huma.Error503ServiceUnavailable("session limit reached")
		case errors.Is(err, livestream.ErrSourceUnavailable):
			return nil, huma.Error502BadGateway("source unavailable", err)
		default:
			h.logger.Error("failed to open live stream",
				slog.String("source", ms.Path),
				slog.Any("error", err),
			)
			return nil, huma.Error500InternalServerError("failed to open live stream")
		}
	}

	out := &OpenLiveStreamOutput{}
	out.Body.SessionID = sess.ID().String()
	out.Body.StreamURL = fmt.Sprintf("/live/%s", sess.ID())
	out.Body.MediaSource = sess.MediaSource().Clone()
	return out, nil
}

// ListLiveStreams returns all open sessions.
func (h *LiveStreamHandler) ListLiveStreams(ctx context.Context, input *ListLiveStreamsInput) (*ListLiveStreamsOutput, error) {
	return &ListLiveStreamsOutput{Body: h.manager.Stats()}, nil
}

// GetLiveStream returns one session's statistics.
func (h *LiveStreamHandler) GetLiveStream(ctx context.Context, input *GetLiveStreamInput) (*GetLiveStreamOutput, error) {
	id, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid session ID format")
	}

	sess, err := h.manager.GetSession(id)
	if err != nil {
		return nil, huma.Error404NotFound("session not found")
	}

	return &GetLiveStreamOutput{Body: sess.Stats()}, nil
}

// CloseLiveStream releases the caller's hold on a session, or force-closes it.
func (h *LiveStreamHandler) CloseLiveStream(ctx context.Context, input *CloseLiveStreamInput) (*CloseLiveStreamOutput, error) {
	id, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid session ID format")
	}

	if input.Force {
		if err := h.manager.CloseSession(id); err != nil {
			return nil, huma.Error404NotFound("session not found")
		}
		out := &CloseLiveStreamOutput{}
		out.Body.SessionID = input.SessionID
		out.Body.Closed = true
		return out, nil
	}

	if err := h.manager.ReleaseConsumer(id); err != nil {
		return nil, huma.Error404NotFound("session not found")
	}

	_, lookupErr := h.manager.GetSession(id)
	out := &CloseLiveStreamOutput{}
	out.Body.SessionID = input.SessionID
	out.Body.Closed = lookupErr != nil
	return out, nil
}

// registerLiveStreamDocs registers a documentation-only operation for the
// byte-stream endpoint so it appears in the OpenAPI spec. The actual request
// handling is done by the raw Chi handler.
func (h *LiveStreamHandler) registerLiveStreamDocs(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "streamLiveSession",
		Method:      "GET",
		Path:        "/live/{sessionID}",
		Summary:     "Stream a live session's bytes",
		Description: "Relays the session's capture as a continuous byte stream. A consumer attaching to a warmed-up session starts near the live edge; the stream runs until the broadcast ends, the client disconnects, or the session is closed.",
		Tags:        []string{"Live Streams"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Live byte stream",
				Headers: map[string]*huma.Param{
					"Content-Type":       {Description: "video/mp2t or the capture's container type"},
					"X-Tunecast-Version": {Description: "tunecast version"},
				},
			},
			"400": {Description: "Invalid session ID format"},
			"404": {Description: "Session not found"},
			"409": {Description: "Session is closed"},
		},
		SkipValidateBody: true,
	}, h.liveStreamDocsHandler)
}

// liveStreamDocsHandler is a no-op handler for the documentation-only
// registration; Chi handles the route first.
func (h *LiveStreamHandler) liveStreamDocsHandler(ctx context.Context, input *GetLiveStreamInput) (*huma.StreamResponse, error) {
	return nil, huma.Error500InternalServerError("this endpoint is handled by raw Chi handlers", nil)
}

// handleRawStreamOptions handles CORS preflight requests for the stream endpoint.
func (h *LiveStreamHandler) handleRawStreamOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Range")
	w.WriteHeader(http.StatusNoContent)
}

// handleRawStream is the raw HTTP handler delivering the live byte stream.
func (h *LiveStreamHandler) handleRawStream(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session ID format", http.StatusBadRequest)
		return
	}

	sess, err := h.manager.GetSession(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if err := sess.AddConsumer(); err != nil {
		http.Error(w, "session is closed", http.StatusConflict)
		return
	}
	defer func() {
		if err := h.manager.ReleaseConsumer(id); err != nil {
			h.logger.Debug("releasing stream consumer",
				slog.String("session_id", id.String()),
				slog.Any("error", err),
			)
		}
	}()

	w.Header().Set("Content-Type", contentTypeFor(sess.MediaSource()))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Tunecast-Version", version.Version)
	w.WriteHeader(http.StatusOK)

	h.logger.Info("stream consumer attached",
		slog.String("session_id", id.String()),
		slog.String("remote_addr", r.RemoteAddr),
	)

	if err := sess.StreamTo(r.Context(), newFlushWriter(w)); err != nil {
		// Headers are committed; all we can do is log.
		h.logger.Warn("stream delivery ended with error",
			slog.String("session_id", id.String()),
			slog.Any("error", err),
		)
		return
	}

	h.logger.Info("stream consumer finished",
		slog.String("session_id", id.String()),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

// contentTypeFor maps a capture container to a response content type.
func contentTypeFor(ms *models.MediaSourceInfo) string {
	switch ms.Container {
	case "", "ts", "mpegts":
		return "video/mp2t"
	case "mp4":
		return "video/mp4"
	case "mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

// flushWriter flushes after every write so live bytes reach the client
// without response buffering delay.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	f, _ := w.(http.Flusher)
	return &flushWriter{w: w, f: f}
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}
