// Package stubagent provides small scripted peers for local development and
// end-to-end testing. Each agent serves the card and streaming endpoints and
// answers from a fixed table, steering forwarding through message metadata.
package stubagent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/a2alab/relay/internal/domain"
)

// Agent is one scripted peer. Respond maps the inbound user text to the
// turn's answer.
type Agent struct {
	Card    domain.AgentCard
	Respond func(input string) reply
}

// RegisterRoutes registers the agent's routes with the echo server.
func (a *Agent) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/card", a.GetCard)
	e.POST("/v1/message:stream", a.StreamMessage)
}

// GetCard returns the capability card.
// GET /v1/card
func (a *Agent) GetCard(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Card)
}

type inboundRequest struct {
	Message struct {
		Role  string        `json:"role"`
		Parts []domain.Part `json:"parts"`
	} `json:"message"`
}

// StreamMessage answers one turn over SSE: a task snapshot, a working
// status, the answer message, then a final completed status.
// POST /v1/message:stream
func (a *Agent) StreamMessage(c echo.Context) error {
	var req inboundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var texts []string
	for _, p := range req.Message.Parts {
		if p.Kind == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	input := strings.Join(texts, "\n")
	answer := a.Respond(input)

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming not supported")
	}

	taskID := uuid.New().String()
	emit := func(result map[string]any) error {
		data, err := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  result,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	frames := []map[string]any{
		{
			"kind":   "task",
			"id":     taskID,
			"status": map[string]any{"state": "submitted"},
		},
		{
			"kind":   "task-status-update",
			"taskId": taskID,
			"status": map[string]any{"state": "working"},
			"final":  false,
		},
		{
			"role": "agent",
			"parts": []map[string]any{
				{"kind": "text", "text": answer.Text},
			},
			"messageId": uuid.New().String(),
			"metadata":  answer.Metadata,
		},
	}
	// A final turn completes the task; a turn expecting a follow-up just
	// closes the stream so the conversation can continue.
	if answer.Final {
		frames = append(frames, map[string]any{
			"kind":   "task-status-update",
			"taskId": taskID,
			"status": map[string]any{"state": "completed"},
			"final":  true,
		})
	}
	for _, f := range frames {
		if err := emit(f); err != nil {
			return err
		}
	}
	return nil
}
