// Package domain defines the core domain models for the relay engine.
package domain

// EventKind classifies one observed protocol frame.
type EventKind string

const (
	EventKindMessage  EventKind = "message"
	EventKindTask     EventKind = "task"
	EventKindStatus   EventKind = "status"
	EventKindArtifact EventKind = "artifact"
	EventKindUnknown  EventKind = "unknown"
	EventKindError    EventKind = "error"
)

// TaskState is a peer-reported task lifecycle state.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
)

// Terminal reports whether the state ends further relaying.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

// SessionStatus represents the lifecycle of a conversation session.
type SessionStatus string

const (
	SessionStatusRunning  SessionStatus = "RUNNING"
	SessionStatusTerminal SessionStatus = "TERMINAL"
)

// TerminalReason explains why a session left the running state.
type TerminalReason string

const (
	ReasonHopLimit          TerminalReason = "hop_limit"
	ReasonPeerTerminalState TerminalReason = "peer_terminal_state"
	ReasonNoRelay           TerminalReason = "no_relay"
	ReasonTransportError    TerminalReason = "transport_error"
	ReasonFrameCeiling      TerminalReason = "frame_ceiling"
	ReasonCancelled         TerminalReason = "cancelled"
)
