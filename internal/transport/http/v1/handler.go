// Package v1 provides the HTTP API for starting and inspecting relay
// sessions.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a2alab/relay/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/relays", h.CreateRelay)
	e.GET("/v1/relays", h.ListRelays)
	e.GET("/v1/relays/:session_id", h.GetRelay)
	e.GET("/v1/relays/:session_id/entries", h.GetRelayEntries)

	e.GET("/v1/agents", h.ListAgents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
