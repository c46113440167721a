package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/a2alab/relay/internal/domain"
)

// CreateRelay starts a relay session.
// POST /v1/relays
//
// By default the session runs in the background and the response carries
// its ID. With ?wait=true the request blocks until the session is terminal.
func (h *Handler) CreateRelay(c echo.Context) error {
	var req domain.RelayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	ctx := c.Request().Context()

	if c.QueryParam("wait") == "true" {
		sess, err := h.service.RunRelay(ctx, req)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, sess)
	}

	resp, err := h.service.StartRelay(ctx, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, resp)
}

// ListRelays lists known sessions.
// GET /v1/relays
func (h *Handler) ListRelays(c echo.Context) error {
	ctx := c.Request().Context()

	sessions, err := h.service.ListSessions(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"relays": sessions,
	})
}

// GetRelay retrieves one session.
// GET /v1/relays/:session_id
func (h *Handler) GetRelay(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	view, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if view == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, view)
}

// GetRelayEntries retrieves the transcript of a session, optionally
// filtered by kind.
// GET /v1/relays/:session_id/entries?kinds=message,status
func (h *Handler) GetRelayEntries(c echo.Context) error {
	sessionID := c.Param("session_id")

	var kinds []domain.EventKind
	if raw := c.QueryParam("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, domain.EventKind(k))
			}
		}
	}

	ctx := c.Request().Context()

	entries, err := h.service.GetEntries(ctx, sessionID, kinds)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}
