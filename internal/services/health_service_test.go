package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "factorlens/internal/websocket"
)

func TestHealthCheck(t *testing.T) {
	hub := ws.NewHub(slog.Default())
	svc := NewHealthService("0.1.0-test", hub, slog.Default())

	status := svc.Check(context.Background())
	require.NotNil(t, status)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "0.1.0-test", status.Version)
	assert.False(t, status.Timestamp.IsZero())
	assert.Contains(t, status.Runtime, "go_version")
	assert.Contains(t, status.Services, "websocket")
}

func TestHealthCheckWithoutHub(t *testing.T) {
	svc := NewHealthService("0.1.0-test", nil, slog.Default())

	status := svc.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.NotContains(t, status.Services, "websocket")
	assert.True(t, svc.Ready(context.Background()))
}
