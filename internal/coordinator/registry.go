package coordinator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Registry is the process-wide, authoritative map of clients and groups.
// It mediates every cross-entity transition.
//
// The Registry exposes two independently-lockable fields, clientsMu and
// groupsMu: operations that only resolve an outbound sink take clientsMu
// alone, operations that only touch group topology take groupsMu alone,
// and operations that need both -- today, only disconnect cleanup --
// take groupsMu before clientsMu, never the reverse.
type Registry struct {
	clientsMu sync.RWMutex
	clients   map[ClientID]Sink

	groupsMu sync.RWMutex
	groups   map[GroupID]*Group

	metrics MetricsReporter
	logger  *slog.Logger
}

// Option configures an optional Registry parameter.
type Option func(*Registry)

// WithMetrics attaches a MetricsReporter to the registry. If mr is nil,
// the default no-op reporter is used.
func WithMetrics(mr MetricsReporter) Option {
	return func(r *Registry) {
		if mr != nil {
			r.metrics = mr
		}
	}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		clients: make(map[ClientID]Sink),
		groups:  make(map[GroupID]*Group),
		metrics: noopMetrics{},
		logger:  logger.With(slog.String("component", "coordinator.registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// -------------------------------------------------------------------------
// Clients
// -------------------------------------------------------------------------

// AddClient registers a connected client's outbound sink.
func (r *Registry) AddClient(id ClientID, sink Sink) {
	r.clientsMu.Lock()
	r.clients[id] = sink
	r.clientsMu.Unlock()
	r.metrics.ClientConnected()
}

// GetClient returns the outbound sink for id, if the client is still
// connected.
func (r *Registry) GetClient(id ClientID) (Sink, bool) {
	r.clientsMu.RLock()
	defer r.clientsMu.RUnlock()
	sink, ok := r.clients[id]
	return sink, ok
}

// DropClient performs full disconnect cleanup: it removes id from every
// group, deletes any group that becomes empty as a result, and finally
// removes id from the client table.
//
// Ordering matters: groups are mutated under groupsMu
// before the client table is mutated under clientsMu, so a notification
// racing this call never observes a still-empty group whose client
// pointer has already been removed.
func (r *Registry) DropClient(id ClientID) {
	r.groupsMu.Lock()
	var emptied []GroupID
	for groupID, group := range r.groups {
		group.DropClient(id)
		if group.IsEmpty() {
			emptied = append(emptied, groupID)
		}
	}
	for _, groupID := range emptied {
		r.logger.Info("removing empty group", slog.String("group_id", groupID.String()))
		delete(r.groups, groupID)
		r.metrics.GroupRemoved()
	}
	r.groupsMu.Unlock()

	r.clientsMu.Lock()
	delete(r.clients, id)
	r.clientsMu.Unlock()
	r.metrics.ClientDisconnected()
}

// -------------------------------------------------------------------------
// Groups
// -------------------------------------------------------------------------

// AddGroup creates a new group with the given parameters and returns a
// sanitized snapshot of it.
func (r *Registry) AddGroup(params Parameters) GroupSnapshot {
	group := newGroup(newGroupID(), params)
	r.groupsMu.Lock()
	r.groups[group.ID] = group
	r.groupsMu.Unlock()
	r.metrics.GroupCreated()
	return group.snapshot()
}

// JoinGroup adds client to the group identified by groupID.
//
// Two-phase acquisition: a reader pass validates existence and fullness
// optimistically, then a writer pass re-validates under lock (the world
// may have changed between phases) before mutating.
func (r *Registry) JoinGroup(groupID GroupID, client ClientID) (GroupSnapshot, error) {
	r.groupsMu.RLock()
	group, ok := r.groups[groupID]
	if !ok {
		r.groupsMu.RUnlock()
		return GroupSnapshot{}, fmt.Errorf("%w: '%s'", ErrGroupNotFound, groupID)
	}
	if group.IsFull() {
		r.groupsMu.RUnlock()
		return GroupSnapshot{}, fmt.Errorf("group '%s' %w", groupID, ErrGroupFull)
	}
	r.groupsMu.RUnlock()

	r.groupsMu.Lock()
	defer r.groupsMu.Unlock()
	group, ok = r.groups[groupID]
	if !ok {
		return GroupSnapshot{}, fmt.Errorf("%w: '%s'", ErrGroupNotFound, groupID)
	}
	if err := group.AddClient(client); err != nil {
		return GroupSnapshot{}, fmt.Errorf("group '%s' %w", groupID, err)
	}
	return group.snapshot(), nil
}

// -------------------------------------------------------------------------
// Sessions
// -------------------------------------------------------------------------

// AddSession creates a new session of the given kind inside groupID.
func (r *Registry) AddSession(groupID GroupID, kind SessionKind, value json.RawMessage) (GroupSnapshot, SessionSnapshot, error) {
	r.groupsMu.Lock()
	defer r.groupsMu.Unlock()
	group, ok := r.groups[groupID]
	if !ok {
		return GroupSnapshot{}, SessionSnapshot{}, fmt.Errorf("%w: '%s'", ErrGroupNotFound, groupID)
	}
	session := group.AddSession(kind, value)
	r.metrics.SessionCreated()
	return group.snapshot(), session.snapshot(), nil
}

// SignupResult is the outcome of a successful SignupSession call.
type SignupResult struct {
	Group            GroupSnapshot
	Session          SessionSnapshot
	PartyNumber      PartyNumber
	ThresholdReached bool
}

// SignupSession signs client up for self-assigned party numbering in the
// given session and reports whether the session's readiness threshold
// has now been reached.
func (r *Registry) SignupSession(client ClientID, groupID GroupID, sessionID SessionID) (SignupResult, error) {
	r.groupsMu.Lock()
	defer r.groupsMu.Unlock()

	group, session, err := r.lookupGroupSession(groupID, sessionID)
	if err != nil {
		return SignupResult{}, err
	}

	wasReached := group.Params.ThresholdReached(session.Kind, session.GetNumberOfClients())
	partyNumber := session.Signup(client)
	parties := session.GetNumberOfClients()
	reached := group.Params.ThresholdReached(session.Kind, parties)
	if reached && !wasReached {
		r.metrics.SessionReady()
	}
	return SignupResult{
		Group:            group.snapshot(),
		Session:          session.snapshot(),
		PartyNumber:      partyNumber,
		ThresholdReached: reached,
	}, nil
}

// LoginResult is the outcome of a successful LoginSession call.
type LoginResult struct {
	Group            GroupSnapshot
	Session          SessionSnapshot
	ThresholdReached bool
}

// LoginSession signs client up for the explicitly requested party number
// in the given session and reports whether the session's readiness
// threshold has now been reached.
func (r *Registry) LoginSession(client ClientID, groupID GroupID, sessionID SessionID, party PartyNumber) (LoginResult, error) {
	r.groupsMu.Lock()
	defer r.groupsMu.Unlock()

	group, session, err := r.lookupGroupSession(groupID, sessionID)
	if err != nil {
		return LoginResult{}, err
	}

	wasReached := group.Params.ThresholdReached(session.Kind, session.GetNumberOfClients())
	if err := session.Login(client, party); err != nil {
		return LoginResult{}, err
	}

	parties := session.GetNumberOfClients()
	reached := group.Params.ThresholdReached(session.Kind, parties)
	if reached && !wasReached {
		r.metrics.SessionReady()
	}
	return LoginResult{
		Group:            group.snapshot(),
		Session:          session.snapshot(),
		ThresholdReached: reached,
	}, nil
}

// lookupGroupSession resolves group and session under the caller's held
// groupsMu lock. Callers must hold at least a read lock.
func (r *Registry) lookupGroupSession(groupID GroupID, sessionID SessionID) (*Group, *Session, error) {
	group, ok := r.groups[groupID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: '%s'", ErrGroupNotFound, groupID)
	}
	session, ok := group.GetSession(sessionID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: '%s' for group '%s'", ErrSessionNotFound, sessionID, groupID)
	}
	return group, session, nil
}

// -------------------------------------------------------------------------
// Introspection
// -------------------------------------------------------------------------

// GetClientIDsFromGroup returns every client currently in groupID.
func (r *Registry) GetClientIDsFromGroup(groupID GroupID) ([]ClientID, error) {
	r.groupsMu.RLock()
	defer r.groupsMu.RUnlock()
	group, ok := r.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrGroupNotFound, groupID)
	}
	return group.clientIDs(), nil
}

// GetClientIDsFromSession returns every client currently signed up to
// sessionID within groupID.
func (r *Registry) GetClientIDsFromSession(groupID GroupID, sessionID SessionID) ([]ClientID, error) {
	r.groupsMu.RLock()
	defer r.groupsMu.RUnlock()
	_, session, err := r.lookupGroupSession(groupID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.GetAllClientIDs(), nil
}

// GetClientIDFromPartyNumber resolves a party number to its client id
// within the given session.
func (r *Registry) GetClientIDFromPartyNumber(groupID GroupID, sessionID SessionID, party PartyNumber) (ClientID, error) {
	r.groupsMu.RLock()
	defer r.groupsMu.RUnlock()
	_, session, err := r.lookupGroupSession(groupID, sessionID)
	if err != nil {
		return ClientID{}, err
	}
	client, ok := session.GetClientID(party)
	if !ok {
		return ClientID{}, fmt.Errorf("%w: '%d'", ErrPartyNotFound, party)
	}
	return client, nil
}

// GetPartyNumberFromClientID resolves a client id to its party number
// within the given session.
func (r *Registry) GetPartyNumberFromClientID(groupID GroupID, sessionID SessionID, client ClientID) (PartyNumber, error) {
	r.groupsMu.RLock()
	defer r.groupsMu.RUnlock()
	_, session, err := r.lookupGroupSession(groupID, sessionID)
	if err != nil {
		return 0, err
	}
	party, ok := session.GetPartyNumber(client)
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrClientNotFound, client)
	}
	return party, nil
}

// ValidateGroupAndSession reports an error unless both groupID and
// sessionID currently exist.
func (r *Registry) ValidateGroupAndSession(groupID GroupID, sessionID SessionID) error {
	r.groupsMu.RLock()
	defer r.groupsMu.RUnlock()
	_, _, err := r.lookupGroupSession(groupID, sessionID)
	return err
}
