// Package handlers provides HTTP API handlers for tunecast.
package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/tunecast/internal/livestream"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	manager   *livestream.Manager
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithManager sets the live stream manager used for session counts.
func (h *HealthHandler) WithManager(manager *livestream.Manager) *HealthHandler {
	h.manager = manager
	return h
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status         string  `json:"status" example:"healthy" doc:"Service health status"`
	Timestamp      string  `json:"timestamp" doc:"Current server time in RFC3339"`
	Version        string  `json:"version" doc:"Build version"`
	Uptime         string  `json:"uptime" doc:"Time since the service started"`
	UptimeSeconds  float64 `json:"uptime_seconds" doc:"Uptime in seconds"`
	ActiveSessions int     `json:"active_sessions" doc:"Open live stream sessions"`
	TotalConsumers int     `json:"total_consumers" doc:"Consumers attached across all sessions"`
}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including live session counts",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       h.version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
	}

	if h.manager != nil {
		stats := h.manager.Stats()
		resp.ActiveSessions = stats.ActiveSessions
		resp.TotalConsumers = stats.TotalConsumers
	}

	return &HealthOutput{Body: resp}, nil
}
