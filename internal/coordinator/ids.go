// Package coordinator implements the in-memory state graph of clients,
// groups, sessions, and parties that the MPC coordinator uses to drive
// membership and readiness for multi-party-computation protocols.
package coordinator

import "github.com/google/uuid"

// ClientID uniquely identifies a connected client for the lifetime of its
// WebSocket connection.
type ClientID = uuid.UUID

// GroupID uniquely identifies a Group for the lifetime of the process.
type GroupID = uuid.UUID

// SessionID uniquely identifies a Session for the lifetime of its Group.
type SessionID = uuid.UUID

// PartyNumber is the dense, 1-based index a client is known by within a
// session. The MPC protocol addresses parties by this number, never by
// ClientID.
type PartyNumber = uint16

// NewClientID returns a fresh, random client identifier.
func NewClientID() ClientID {
	return uuid.New()
}

// newGroupID returns a fresh, random group identifier.
func newGroupID() GroupID {
	return uuid.New()
}

// newSessionID returns a fresh, random session identifier.
func newSessionID() SessionID {
	return uuid.New()
}
