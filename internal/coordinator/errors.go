package coordinator

import "errors"

// Sentinel errors for coordinator operations. Handlers in
// internal/dispatch turn any of these into a JSON-RPC InvalidParams
// response whose data is the error's text.
var (
	// ErrGroupNotFound indicates no group exists for the given GroupID.
	ErrGroupNotFound = errors.New("group not found")

	// ErrSessionNotFound indicates no session exists for the given
	// SessionID within the given group.
	ErrSessionNotFound = errors.New("session not found")

	// ErrGroupFull indicates a group already has params.N clients. Wrapped
	// with the group id inline, e.g. "group 'xyz' is full".
	ErrGroupFull = errors.New("is full")

	// ErrPartyNotFound indicates no client is signed up under the given
	// party number.
	ErrPartyNotFound = errors.New("party not found")

	// ErrClientNotFound indicates the client does not hold a party
	// number in the given session.
	ErrClientNotFound = errors.New("client id not found")

	// ErrPartyNumberOccupied indicates a login attempt targeted a party
	// number already held by a different client. Wrapped with the party
	// number inline, e.g. "party number '1' is already occupied by
	// another party".
	ErrPartyNumberOccupied = errors.New("is already occupied by another party")

	// ErrInvalidParties indicates n < 2.
	ErrInvalidParties = errors.New("invalid number of parties")

	// ErrInvalidThreshold indicates t is not in range 0 < t < n.
	ErrInvalidThreshold = errors.New("invalid threshold")
)
