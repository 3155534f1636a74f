package coordinator

import "encoding/json"

// Group is a capped set of clients sharing Parameters; the unit of MPC
// ceremony scope. It owns every Session created within it: len(clients)
// never exceeds params.N, and its sessions exist only as long as it does.
type Group struct {
	ID     GroupID
	Params Parameters

	clients  map[ClientID]struct{}
	sessions map[SessionID]*Session
}

// newGroup constructs an empty group with the given validated parameters.
func newGroup(id GroupID, params Parameters) *Group {
	return &Group{
		ID:       id,
		Params:   params,
		clients:  make(map[ClientID]struct{}),
		sessions: make(map[SessionID]*Session),
	}
}

// AddClient inserts client into the group's member set, failing with
// ErrGroupFull once params.N members are present. Idempotent on
// re-insertion of an existing member.
func (g *Group) AddClient(client ClientID) error {
	if _, already := g.clients[client]; already {
		return nil
	}
	if len(g.clients) >= int(g.Params.N) {
		return ErrGroupFull
	}
	g.clients[client] = struct{}{}
	return nil
}

// DropClient removes client from the group's member set.
//
// Known limitation, preserved deliberately (see DESIGN.md): this does
// not scrub client from any session's party signups. A later Session
// notification enumerating that session's members may still try, and
// fail, to deliver to this client.
func (g *Group) DropClient(client ClientID) {
	delete(g.clients, client)
}

// AddSession creates a fresh session of the given kind, with an optional
// opaque value, and returns it.
func (g *Group) AddSession(kind SessionKind, value json.RawMessage) *Session {
	session := newSession(newSessionID(), kind, value)
	g.sessions[session.ID] = session
	return session
}

// GetSession returns the session with the given id, if present.
func (g *Group) GetSession(id SessionID) (*Session, bool) {
	s, ok := g.sessions[id]
	return s, ok
}

// IsEmpty reports whether the group currently has zero clients.
func (g *Group) IsEmpty() bool {
	return len(g.clients) == 0
}

// IsFull reports whether the group has exactly params.N clients.
func (g *Group) IsFull() bool {
	return len(g.clients) == int(g.Params.N)
}

// clientIDs returns every client currently in the group, in no
// particular order.
func (g *Group) clientIDs() []ClientID {
	ids := make([]ClientID, 0, len(g.clients))
	for c := range g.clients {
		ids = append(ids, c)
	}
	return ids
}

// snapshot returns a sanitized, detached copy for the wire: only
// {id, params} are visible. Internal sessions and clients are elided.
func (g *Group) snapshot() GroupSnapshot {
	return GroupSnapshot{
		ID:     g.ID,
		Params: g.Params,
	}
}
