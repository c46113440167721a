// Package protocol classifies raw streaming frames into typed protocol
// events and extracts relayable text from message parts.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/a2alab/relay/internal/domain"
)

// frame is the loose shape probed during classification. Servers disagree on
// wrapping, so every field is optional.
type frame struct {
	Kind     string          `json:"kind,omitempty"`
	Role     string          `json:"role,omitempty"`
	Parts    json.RawMessage `json:"parts,omitempty"`
	ID       string          `json:"id,omitempty"`
	TaskID   string          `json:"taskId,omitempty"`
	Status   json.RawMessage `json:"status,omitempty"`
	Final    *bool           `json:"final,omitempty"`
	Artifact json.RawMessage `json:"artifact,omitempty"`

	// wrapped variants, one level deep
	Message        json.RawMessage `json:"message,omitempty"`
	Task           json.RawMessage `json:"task,omitempty"`
	StatusUpdate   json.RawMessage `json:"statusUpdate,omitempty"`
	ArtifactUpdate json.RawMessage `json:"artifactUpdate,omitempty"`
}

// envelope is the transport-level wrapper around each frame. Streaming
// responses carry their payload under "result".
type envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
}

// Classify maps one raw frame to exactly one ProtocolEvent variant. It is
// pure and idempotent: the same input always yields the same variant and
// text. The original frame is preserved verbatim in Raw on every variant.
func Classify(raw json.RawMessage) domain.ProtocolEvent {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Result) == 0 {
		return unknown(raw)
	}

	ev, ok := classifyShape(env.Result)
	if !ok {
		// Some servers wrap the payload one level deeper under a named
		// key. Unwrap once, never recursively.
		var f frame
		if err := json.Unmarshal(env.Result, &f); err != nil {
			return unknown(raw)
		}
		for _, wrapped := range []json.RawMessage{f.Message, f.Task, f.StatusUpdate, f.ArtifactUpdate} {
			if wrapped != nil {
				ev, ok = classifyShape(wrapped)
				break
			}
		}
	}
	if !ok {
		return unknown(raw)
	}
	ev.Raw = raw
	return ev
}

// classifyShape applies the shape checks in order; first match wins.
func classifyShape(result json.RawMessage) (domain.ProtocolEvent, bool) {
	var f frame
	if err := json.Unmarshal(result, &f); err != nil {
		return domain.ProtocolEvent{}, false
	}

	switch {
	case f.Role != "" && f.Parts != nil:
		var msg domain.Message
		if err := json.Unmarshal(result, &msg); err != nil {
			return domain.ProtocolEvent{}, false
		}
		return domain.ProtocolEvent{Kind: domain.EventKindMessage, Message: &msg}, true

	case f.Status != nil && f.ID != "" && f.Kind != "task-status-update":
		var task domain.TaskSnapshot
		if err := json.Unmarshal(result, &task); err != nil {
			return domain.ProtocolEvent{}, false
		}
		return domain.ProtocolEvent{Kind: domain.EventKindTask, Task: &task}, true

	case f.Status != nil && f.TaskID != "" && (f.Final != nil || f.Kind == "task-status-update"):
		var upd domain.StatusUpdate
		if err := json.Unmarshal(result, &upd); err != nil {
			return domain.ProtocolEvent{}, false
		}
		return domain.ProtocolEvent{Kind: domain.EventKindStatus, Status: &upd}, true

	case f.TaskID != "" && f.Artifact != nil:
		var art domain.ArtifactUpdate
		if err := json.Unmarshal(result, &art); err != nil {
			return domain.ProtocolEvent{}, false
		}
		return domain.ProtocolEvent{Kind: domain.EventKindArtifact, Artifact: &art}, true
	}

	return domain.ProtocolEvent{}, false
}

func unknown(raw json.RawMessage) domain.ProtocolEvent {
	return domain.ProtocolEvent{Kind: domain.EventKindUnknown, Raw: raw}
}

// ExtractText concatenates the textual parts in array order. File and data
// parts appear as short placeholder tokens so their existence stays visible
// in the transcript.
func ExtractText(parts []domain.Part) string {
	var acc []string
	for _, p := range parts {
		switch p.Kind {
		case "text":
			if p.Text != "" {
				acc = append(acc, p.Text)
			}
		case "file", "data":
			acc = append(acc, "["+p.Kind+"]")
		}
	}
	return strings.Join(acc, "\n")
}

// RelayText is the text eligible for forwarding to the next hop: textual
// parts only, placeholders excluded.
func RelayText(parts []domain.Part) string {
	var acc []string
	for _, p := range parts {
		if p.Kind == "text" && p.Text != "" {
			acc = append(acc, p.Text)
		}
	}
	return strings.Join(acc, "\n")
}

// DisplayText renders the one-line transcript text for an event.
func DisplayText(ev domain.ProtocolEvent) string {
	switch ev.Kind {
	case domain.EventKindMessage:
		if text := strings.TrimSpace(ExtractText(ev.Message.Parts)); text != "" {
			return text
		}
		return "[non-text parts]"
	case domain.EventKindTask:
		return fmt.Sprintf("task %s -> %s", ev.Task.ID, ev.Task.Status.State)
	case domain.EventKindStatus:
		if ev.Status.Status.Note != "" {
			return fmt.Sprintf("%s - %s", ev.Status.Status.State, ev.Status.Status.Note)
		}
		return string(ev.Status.Status.State)
	case domain.EventKindArtifact:
		if preview := strings.TrimSpace(ExtractText(ev.Artifact.Artifact.Parts)); preview != "" {
			return preview
		}
		return fmt.Sprintf("artifact update for task %s", ev.Artifact.TaskID)
	}
	return ""
}
