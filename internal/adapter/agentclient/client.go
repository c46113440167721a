// Package agentclient provides the HTTP client for streaming calls against
// agent endpoints.
package agentclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a2alab/relay/internal/domain"
)

// FrameHandler is called for each decoded frame from the stream. Returning
// an error stops consumption; the error is propagated to the caller as-is.
type FrameHandler func(frame json.RawMessage) error

// Client is an HTTP client for agent endpoints. Safe for concurrent use by
// multiple sessions.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new agent client. The timeout bounds a whole streaming
// call, so it should be generous.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchCard resolves the endpoint's capability card.
func (c *Client) FetchCard(ctx context.Context, ep domain.AgentEndpoint) (*domain.AgentCard, error) {
	url := strings.TrimSuffix(ep.BaseURL, "/") + "/v1/card"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, ep)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("card endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var card domain.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode card: %w", err)
	}
	return &card, nil
}

// streamPayload is the request body for a streaming message call.
type streamPayload struct {
	Message       streamMessage `json:"message"`
	Configuration streamConfig  `json:"configuration"`
}

type streamMessage struct {
	Role      string        `json:"role"`
	Parts     []domain.Part `json:"parts"`
	MessageID string        `json:"messageId"`
}

type streamConfig struct {
	HistoryLength int `json:"historyLength"`
}

// Stream opens one streaming call against the endpoint and invokes the
// handler for each raw frame until the peer closes the stream, the call
// fails, or the handler aborts. The connection is released on every exit
// path. No retries are performed.
func (c *Client) Stream(ctx context.Context, ep domain.AgentEndpoint, msg domain.OutboundMessage, handler FrameHandler) error {
	payload := streamPayload{
		Message: streamMessage{
			Role:      msg.Role,
			Parts:     []domain.Part{{Kind: "text", Text: msg.Text}},
			MessageID: uuid.New().String(),
		},
		Configuration: streamConfig{HistoryLength: 6},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(ep.BaseURL, "/") + "/v1/message:stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, ep)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return parseSSE(resp.Body, handler)
}

func setHeaders(req *http.Request, ep domain.AgentEndpoint) {
	req.Header.Set("Content-Type", "application/json")
	if ep.Username != "" {
		req.SetBasicAuth(ep.Username, ep.Password)
	}
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}
}

// parseSSE reads an SSE stream and calls the handler with each event's data
// decoded as a JSON frame. A data payload that is not valid JSON is a
// malformed frame and fails the stream.
func parseSSE(reader io.Reader, handler FrameHandler) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var data []string

	flush := func() error {
		if len(data) == 0 {
			return nil
		}
		joined := strings.Join(data, "\n")
		data = data[:0]
		if !json.Valid([]byte(joined)) {
			return fmt.Errorf("malformed frame payload: %.120s", joined)
		}
		return handler(json.RawMessage(joined))
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Ignore comments (lines starting with :) and other fields
	}

	// Handle any remaining event
	if err := flush(); err != nil {
		return err
	}

	return scanner.Err()
}
