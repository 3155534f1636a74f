package dispatch

import "github.com/coinfabrik/mpc-coordinator/internal/coordinator"

// Notification is a single fan-out directive appended by a handler and
// later realised by the Connection once the caller's own response has
// been sent.
type Notification struct {
	// Kind selects which recipient-resolution pass the Connection runs.
	Kind NotificationKind

	// GroupID and SessionID scope Group and Session notifications.
	GroupID   coordinator.GroupID
	SessionID coordinator.SessionID

	// Filter lists clients to exclude from a Group or Session
	// notification. Group notifications do not self-exclude; Session
	// notifications additionally always exclude the caller.
	Filter []coordinator.ClientID

	// Method is the JSON-RPC method name synthesised on the outbound
	// notification envelope.
	Method string

	// Message is the payload for Group and Session notifications.
	Message any

	// Relays carries one (recipient, payload) pair per entry for a
	// Relay notification; unused by Group and Session notifications.
	Relays []RelayMessage
}

// NotificationKind distinguishes the three fan-out shapes a
// Notification Plan entry can take.
type NotificationKind int

const (
	// KindGroup fans out to every member of a Group, minus Filter.
	KindGroup NotificationKind = iota
	// KindSession fans out to every party of a Session, minus Filter
	// and minus the caller.
	KindSession
	// KindRelay delivers distinct payloads to distinct recipients.
	KindRelay
)

// RelayMessage pairs one recipient with its own payload for a Relay
// notification.
type RelayMessage struct {
	ClientID coordinator.ClientID
	Message  any
}

// Plan is the per-request buffer of notification directives. It is
// created empty at the start of each request, appended to by handlers,
// and drained by the Connection after the response has been sent.
// A Plan is only ever touched by the single goroutine
// handling one request -- handlers never spawn -- so it needs no lock.
type Plan struct {
	notifications []Notification
}

// Group appends a Group notification.
func (p *Plan) Group(groupID coordinator.GroupID, filter []coordinator.ClientID, method string, message any) {
	p.notifications = append(p.notifications, Notification{
		Kind:    KindGroup,
		GroupID: groupID,
		Filter:  filter,
		Method:  method,
		Message: message,
	})
}

// Session appends a Session notification.
func (p *Plan) Session(groupID coordinator.GroupID, sessionID coordinator.SessionID, filter []coordinator.ClientID, method string, message any) {
	p.notifications = append(p.notifications, Notification{
		Kind:      KindSession,
		GroupID:   groupID,
		SessionID: sessionID,
		Filter:    filter,
		Method:    method,
		Message:   message,
	})
}

// Relay appends a Relay notification carrying a single recipient.
func (p *Plan) Relay(method string, clientID coordinator.ClientID, message any) {
	p.notifications = append(p.notifications, Notification{
		Kind:   KindRelay,
		Method: method,
		Relays: []RelayMessage{{ClientID: clientID, Message: message}},
	})
}

// Notifications returns the accumulated plan entries, in append order.
func (p *Plan) Notifications() []Notification {
	return p.notifications
}
