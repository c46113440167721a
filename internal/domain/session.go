package domain

import "time"

// AgentSkill describes one operation a peer advertises on its card.
type AgentSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AgentCard is a resolved capability descriptor. It is used for display and
// labeling only; relay decisions never consult it.
type AgentCard struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Skills      []AgentSkill `json:"skills,omitempty"`
}

// AgentEndpoint identifies one peer. Immutable once a conversation starts and
// shared read-only across concurrently running sessions.
type AgentEndpoint struct {
	Label    string            `json:"label"`
	BaseURL  string            `json:"base_url"`
	Username string            `json:"-"`
	Password string            `json:"-"`
	Headers  map[string]string `json:"-"`
	Card     *AgentCard        `json:"card,omitempty"`
}

// TranscriptEntry is one immutable record of an observed event. Relayed marks
// the entry whose text became the next hop's inbound message.
type TranscriptEntry struct {
	Ts          time.Time     `json:"ts"`
	Origin      string        `json:"origin"`
	Destination string        `json:"destination,omitempty"`
	Kind        EventKind     `json:"kind"`
	Role        string        `json:"role,omitempty"`
	Text        string        `json:"text"`
	Event       ProtocolEvent `json:"event"`
	Relayed     bool          `json:"relayed"`
}

// ConversationSession identifies one end-to-end exchange between two peers.
// It is mutated only by the conversation driver while running and becomes
// immutable once terminal.
type ConversationSession struct {
	SessionID string         `json:"session_id"`
	Initiator string         `json:"initiator"`
	Active    string         `json:"active"`
	Peer      string         `json:"peer"`
	Hops      int            `json:"hops"`
	Status    SessionStatus  `json:"status"`
	Reason    TerminalReason `json:"reason,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}
