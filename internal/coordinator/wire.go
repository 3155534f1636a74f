package coordinator

import "encoding/json"

// GroupSnapshot is the sanitized, wire-safe projection of a Group:
// membership is never serialised back to clients.
type GroupSnapshot struct {
	ID     GroupID    `json:"id"`
	Params Parameters `json:"params"`
}

// SessionSnapshot is the sanitized, wire-safe projection of a Session:
// party signups and occupancy are never serialised back to clients.
type SessionSnapshot struct {
	ID    SessionID       `json:"id"`
	Kind  SessionKind     `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}
