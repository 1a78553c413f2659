package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	ws "factorlens/internal/websocket"
)

// HealthService provides health check functionality
type HealthService struct {
	version      string
	webSocketHub *ws.Hub
	startTime    time.Time
	logger       *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version string, webSocketHub *ws.Hub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:      version,
		webSocketHub: webSocketHub,
		startTime:    time.Now(),
		logger:       logger.With(slog.String("service", "health")),
	}
}

// Check returns the current health status with runtime statistics
func (h *HealthService) Check(ctx context.Context) *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(h.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"alloc_bytes":    mem.Alloc,
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
		},
		Services: map[string]interface{}{},
	}

	if h.webSocketHub != nil {
		status.Services["websocket"] = map[string]interface{}{
			"status":             "up",
			"active_connections": h.webSocketHub.ActiveConnections(),
			"total_connections":  h.webSocketHub.TotalConnections(),
		}
	}

	h.logger.DebugContext(ctx, "health check served",
		slog.String("status", status.Status))
	return status
}

// Ready reports whether the service can accept regression requests. The
// server is ready as soon as it is up; data sources are contacted lazily.
func (h *HealthService) Ready(ctx context.Context) bool {
	return true
}
