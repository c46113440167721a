package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a2alab/relay/internal/domain"
)

func TestStreamParsesSSE(t *testing.T) {
	var gotHeaders http.Header
	var gotPayload streamPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/message:stream" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotHeaders = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"result\":{\"kind\":\"task\",\"id\":\"t1\",\"status\":{\"state\":\"submitted\"}}}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"result\":{\"role\":\"agent\",\"parts\":[{\"kind\":\"text\",\"text\":\"hi\"}]}}\n\n")
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ep := domain.AgentEndpoint{
		Label:    "A",
		BaseURL:  server.URL,
		Username: "user",
		Password: "secret",
		Headers:  map[string]string{"X-Custom": "yes"},
	}

	var frames []json.RawMessage
	err := client.Stream(ctx, ep, domain.OutboundMessage{Role: "user", Text: "hello"}, func(frame json.RawMessage) error {
		frames = append(frames, frame)
		return nil
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	if gotPayload.Message.Role != "user" || len(gotPayload.Message.Parts) != 1 || gotPayload.Message.Parts[0].Text != "hello" {
		t.Fatalf("unexpected request payload: %+v", gotPayload)
	}
	if gotPayload.Message.MessageID == "" {
		t.Fatalf("messageId must be set")
	}
	if gotHeaders.Get("Accept") != "text/event-stream" {
		t.Fatalf("missing Accept header")
	}
	if gotHeaders.Get("X-Custom") != "yes" {
		t.Fatalf("missing custom header")
	}
	if user, pass, ok := parseBasicAuth(gotHeaders.Get("Authorization")); !ok || user != "user" || pass != "secret" {
		t.Fatalf("missing or wrong basic auth: %q", gotHeaders.Get("Authorization"))
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func parseBasicAuth(header string) (string, string, bool) {
	req := &http.Request{Header: http.Header{"Authorization": []string{header}}}
	return req.BasicAuth()
}

func TestStreamHandlerErrorStopsConsumption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, "data: {\"result\":{\"kind\":\"task\",\"id\":\"t%d\",\"status\":{\"state\":\"working\"}}}\n\n", i)
		}
	}))
	defer server.Close()

	stop := errors.New("stop")
	count := 0
	client := NewClient(5 * time.Second)
	err := client.Stream(context.Background(), domain.AgentEndpoint{BaseURL: server.URL}, domain.OutboundMessage{Role: "user", Text: "x"}, func(frame json.RawMessage) error {
		count++
		if count == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	if count != 3 {
		t.Fatalf("expected consumption to stop at 3, got %d", count)
	}
}

func TestStreamNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	err := client.Stream(context.Background(), domain.AgentEndpoint{BaseURL: server.URL}, domain.OutboundMessage{Role: "user", Text: "x"}, func(json.RawMessage) error {
		t.Fatalf("handler must not be called")
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestParseSSEMultilineData(t *testing.T) {
	input := "data: {\"a\":\n" +
		"data: 1}\n\n"

	var frames []json.RawMessage
	if err := parseSSE(strings.NewReader(input), func(frame json.RawMessage) error {
		frames = append(frames, frame)
		return nil
	}); err != nil {
		t.Fatalf("parseSSE failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if string(frames[0]) != "{\"a\":\n1}" {
		t.Fatalf("unexpected frame: %q", frames[0])
	}
}

func TestParseSSEFlushesAtEOF(t *testing.T) {
	input := "data: {\"a\":1}\n" // no trailing blank line

	var frames []json.RawMessage
	if err := parseSSE(strings.NewReader(input), func(frame json.RawMessage) error {
		frames = append(frames, frame)
		return nil
	}); err != nil {
		t.Fatalf("parseSSE failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected trailing event to flush, got %d frames", len(frames))
	}
}

func TestParseSSEMalformedPayload(t *testing.T) {
	input := "data: not json\n\n"
	err := parseSSE(strings.NewReader(input), func(json.RawMessage) error {
		t.Fatalf("handler must not see malformed payloads")
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "malformed frame payload") {
		t.Fatalf("expected malformed payload error, got %v", err)
	}
}

func TestFetchCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/card" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.AgentCard{
			Name:   "TestAgent",
			Skills: []domain.AgentSkill{{ID: "s1", Name: "Skill"}},
		})
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	card, err := client.FetchCard(context.Background(), domain.AgentEndpoint{BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("FetchCard failed: %v", err)
	}
	if card.Name != "TestAgent" || len(card.Skills) != 1 {
		t.Fatalf("unexpected card: %+v", card)
	}
}
