package coordinator

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SessionKind distinguishes the two MPC ceremony types a Session can host.
type SessionKind string

const (
	// SessionKindKeygen is a distributed key-generation ceremony. It
	// requires every party in the group (n-of-n).
	SessionKindKeygen SessionKind = "keygen"

	// SessionKindSign is a threshold-signing ceremony. It requires a
	// strict quorum of t+1 parties.
	SessionKindSign SessionKind = "sign"
)

// Session is a bounded sub-activity of a Group: a keygen or signing
// ceremony with a dense, 1-based party numbering.
//
// partySignups and occupied always agree on key set; a ClientID appears
// at most once as a value in partySignups; occupied is kept strictly
// increasing, so the next assigned party number is the smallest positive
// integer not already in it.
type Session struct {
	ID    SessionID       `json:"id"`
	Kind  SessionKind     `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`

	partySignups map[PartyNumber]ClientID
	occupied     []PartyNumber

	// finished tracks parties that have signalled ceremony completion.
	// No dispatch handler populates this yet; kept as a bookkeeping slot
	// for a future "party done" signal rather than removed outright.
	finished map[PartyNumber]struct{}
}

// newSession constructs an empty session of the given kind with an
// optional opaque value (a message or transaction to be signed, for
// example).
func newSession(id SessionID, kind SessionKind, value json.RawMessage) *Session {
	return &Session{
		ID:           id,
		Kind:         kind,
		Value:        value,
		partySignups: make(map[PartyNumber]ClientID),
		finished:     make(map[PartyNumber]struct{}),
	}
}

// Signup registers client in the session, assigning it the smallest
// unused positive party number, and returns that number.
//
// Idempotent: if client is already registered, its existing party number
// is returned unchanged and no new slot is consumed.
func (s *Session) Signup(client ClientID) PartyNumber {
	if pn, ok := s.GetPartyNumber(client); ok {
		return pn
	}
	pn := s.nextPartyNumber()
	s.addParty(client, pn)
	return pn
}

// Login registers client under the specific party number requested.
//
// Idempotent if client already holds a party number in this session:
// a second call with a different number is a silent no-op.
// Otherwise fails with ErrPartyNumberOccupied if party is held by
// another client.
func (s *Session) Login(client ClientID, party PartyNumber) error {
	if s.IsClientInSession(client) {
		return nil
	}
	if _, occupied := s.partySignups[party]; occupied {
		return fmt.Errorf("party number '%d' %w", party, ErrPartyNumberOccupied)
	}
	s.addParty(client, party)
	return nil
}

// addParty assumes party is not already occupied and inserts client,
// keeping occupied sorted.
func (s *Session) addParty(client ClientID, party PartyNumber) {
	s.partySignups[party] = client
	s.occupied = append(s.occupied, party)
	sort.Slice(s.occupied, func(i, j int) bool { return s.occupied[i] < s.occupied[j] })
}

// nextPartyNumber returns the smallest positive integer not present in
// occupied, assuming occupied is sorted ascending.
//
// Examples: [1,2,3,4] -> 5; [1,4,5,6] -> 2; [] -> 1.
func (s *Session) nextPartyNumber() PartyNumber {
	for i, party := range s.occupied {
		if PartyNumber(i+1) != party { //nolint:gosec // i bounded by occupied length, well within uint16
			return PartyNumber(i + 1) //nolint:gosec
		}
	}
	if len(s.occupied) == 0 {
		return 1
	}
	return s.occupied[len(s.occupied)-1] + 1
}

// GetClientID returns the client registered under party, if any.
func (s *Session) GetClientID(party PartyNumber) (ClientID, bool) {
	c, ok := s.partySignups[party]
	return c, ok
}

// GetPartyNumber returns the party number held by client, if any.
func (s *Session) GetPartyNumber(client ClientID) (PartyNumber, bool) {
	for pn, c := range s.partySignups {
		if c == client {
			return pn, true
		}
	}
	return 0, false
}

// IsClientInSession reports whether client holds any party number here.
func (s *Session) IsClientInSession(client ClientID) bool {
	_, ok := s.GetPartyNumber(client)
	return ok
}

// GetAllClientIDs returns every client currently signed up, in no
// particular order.
func (s *Session) GetAllClientIDs() []ClientID {
	ids := make([]ClientID, 0, len(s.partySignups))
	for _, c := range s.partySignups {
		ids = append(ids, c)
	}
	return ids
}

// GetNumberOfClients returns the number of parties currently signed up.
func (s *Session) GetNumberOfClients() int {
	return len(s.partySignups)
}

// dropClient removes client from this session's party_signups and
// occupied, if present. Unused by Group.DropClient today: disconnect
// deliberately leaves a ghost-party signup behind (see DESIGN.md), so
// this method exists for tests and any future opt-in scrub policy, not
// for the disconnect path.
func (s *Session) dropClient(client ClientID) {
	pn, ok := s.GetPartyNumber(client)
	if !ok {
		return
	}
	delete(s.partySignups, pn)
	delete(s.finished, pn)
	for i, p := range s.occupied {
		if p == pn {
			s.occupied = append(s.occupied[:i], s.occupied[i+1:]...)
			break
		}
	}
}

// snapshot returns a sanitized, detached copy for the wire: only
// {id, kind, value} are visible.
func (s *Session) snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:    s.ID,
		Kind:  s.Kind,
		Value: s.Value,
	}
}
