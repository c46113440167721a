package domain

import "encoding/json"

// Part is one element of a message or artifact body. Only text parts carry
// relayable content; file and data parts are preserved as placeholders.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Message is a complete conversational turn from a peer.
type Message struct {
	Role      string         `json:"role"`
	Parts     []Part         `json:"parts"`
	MessageID string         `json:"messageId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskStatus is the status object carried by task and status-update frames.
type TaskStatus struct {
	State TaskState `json:"state"`
	Note  string    `json:"message,omitempty"`
}

// TaskSnapshot is the initial state of a unit of work.
type TaskSnapshot struct {
	ID     string     `json:"id"`
	Status TaskStatus `json:"status"`
}

// StatusUpdate is a task lifecycle transition. Final signals that the peer
// intends to close the stream.
type StatusUpdate struct {
	TaskID string     `json:"taskId"`
	Status TaskStatus `json:"status"`
	Final  bool       `json:"final,omitempty"`
}

// Artifact is a named side-output of a task.
type Artifact struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Parts       []Part `json:"parts,omitempty"`
}

// ArtifactUpdate announces a new or updated artifact for a task.
type ArtifactUpdate struct {
	TaskID   string   `json:"taskId"`
	Artifact Artifact `json:"artifact"`
}

// ProtocolEvent is the classified form of one raw frame. Exactly one of the
// variant pointers is set for the corresponding Kind; Raw always preserves
// the original frame verbatim for audit.
type ProtocolEvent struct {
	Kind     EventKind       `json:"kind"`
	Message  *Message        `json:"message,omitempty"`
	Task     *TaskSnapshot   `json:"task,omitempty"`
	Status   *StatusUpdate   `json:"status,omitempty"`
	Artifact *ArtifactUpdate `json:"artifact,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}
