package domain

// OutboundMessage is the message submitted to a peer when opening a stream.
type OutboundMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// RelayRequest represents the request to start a relay session.
type RelayRequest struct {
	Prompt    string `json:"prompt"`
	Initiator string `json:"initiator"`
	HopLimit  int    `json:"hop_limit,omitempty"`
}

// RelayResponse represents the response after starting a relay session.
type RelayResponse struct {
	SessionID string `json:"session_id"`
	Initiator string `json:"initiator"`
}

// SessionView is the read-only projection of a session exposed to viewers.
type SessionView struct {
	ConversationSession
	EntryCount int `json:"entry_count"`
}
