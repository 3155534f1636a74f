// Package wsserver hosts the coordinator's single WebSocket endpoint: the
// HTTP upgrade, the per-client Connection with its outbound queue, and the
// realization of a dispatch.Plan into wire notifications.
package wsserver

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/dispatch"
	"github.com/coinfabrik/mpc-coordinator/internal/jsonrpc"
)

// Connection owns one client's websocket.Conn, its identity in the
// Registry, and the Outbox backing its Sink. It pairs a receive task
// (read, dispatch, realize notifications) with a send task (drain the
// Outbox to the wire), and tears both down together on disconnect.
type Connection struct {
	id     coordinator.ClientID
	conn   *websocket.Conn
	outbox *Outbox

	registry *coordinator.Registry
	handler  *dispatch.ServiceHandler
	logger   *slog.Logger
}

// NewConnection registers a freshly upgraded websocket.Conn as a new
// client in registry and returns the Connection driving it.
func NewConnection(conn *websocket.Conn, registry *coordinator.Registry, handler *dispatch.ServiceHandler, logger *slog.Logger) *Connection {
	id := coordinator.NewClientID()
	outbox := NewOutbox()
	registry.AddClient(id, outbox)

	return &Connection{
		id:       id,
		conn:     conn,
		outbox:   outbox,
		registry: registry,
		handler:  handler,
		logger:   logger.With(slog.String("component", "wsserver.connection"), slog.String("client_id", id.String())),
	}
}

// Serve runs the connection until either its read or write side ends,
// then performs disconnect cleanup. It blocks until the connection is
// fully torn down.
func (c *Connection) Serve() {
	c.logger.Info("client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.sendLoop()
	}()

	c.recvLoop()

	// The read side ending (remote close, protocol error) is the normal
	// trigger for shutdown; close the outbox so the send goroutine exits
	// too, then wait for it before cleaning up the registry.
	c.outbox.Close()
	<-done

	c.registry.DropClient(c.id)
	c.logger.Info("client disconnected")
}

// recvLoop reads frames until the connection closes or errors, dispatching
// each to the ServiceHandler and realizing its notification plan.
func (c *Connection) recvLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", slog.String("error", err.Error()))
			}
			return
		}
		c.handleMessage(data)
	}
}

// sendLoop drains the outbox to the wire until it is closed, or until a
// write fails, in which case it closes the socket.
func (c *Connection) sendLoop() {
	for {
		message, ok := c.outbox.Recv()
		if !ok {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.logger.Warn("write error", slog.String("error", err.Error()))
			// Closing the socket makes the blocked read fail, so the
			// receive loop ends too and Serve proceeds to cleanup.
			_ = c.conn.Close()
			return
		}
	}
}

// handleMessage decodes one inbound frame, dispatches it, sends the
// response (if any) to this connection's own outbox, and only then
// realizes the resulting notification plan: response before
// notification, always.
func (c *Connection) handleMessage(data []byte) {
	req, err := jsonrpc.Decode(data)
	if err != nil {
		c.logger.Warn("malformed request", slog.String("error", err.Error()))
		return
	}

	plan := &dispatch.Plan{}
	ctx := dispatch.Context{ClientID: c.id, Registry: c.registry, Plan: plan}

	resp := c.handler.Serve(ctx, req)
	if resp != nil {
		c.deliver(c.outbox, resp)
	}

	for _, notification := range plan.Notifications() {
		c.realize(notification)
	}
}

// deliver marshals v and pushes it onto sink, logging (never propagating)
// marshal or closed-sink failures.
func (c *Connection) deliver(sink coordinator.Sink, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal outbound message", slog.String("error", err.Error()))
		return
	}
	if err := sink.Send(data); err != nil {
		c.logger.Warn("failed to enqueue outbound message", slog.String("error", err.Error()))
	}
}

// realize resolves one notification's recipients and pushes a JSON-RPC
// notification envelope to each of their sinks.
func (c *Connection) realize(n dispatch.Notification) {
	switch n.Kind {
	case dispatch.KindGroup:
		c.fanOut(n, n.GroupID, nil, false)
	case dispatch.KindSession:
		c.fanOut(n, n.GroupID, &n.SessionID, true)
	case dispatch.KindRelay:
		for _, relay := range n.Relays {
			sink, ok := c.registry.GetClient(relay.ClientID)
			if !ok {
				c.logger.Warn("notification recipient no longer registered",
					slog.String("recipient", relay.ClientID.String()))
				continue
			}
			c.deliver(sink, jsonrpc.NewNotify(n.Method, relay.Message))
		}
	}
}

// fanOut delivers n.Message to every client of the named group (or, when
// sessionID is non-nil, every party of that session), excluding n.Filter
// and, when excludeSelf is set, the connection's own client id: Session
// notifications always self-exclude, Group notifications never do.
func (c *Connection) fanOut(n dispatch.Notification, groupID coordinator.GroupID, sessionID *coordinator.SessionID, excludeSelf bool) {
	var (
		recipients []coordinator.ClientID
		err        error
	)
	if sessionID != nil {
		recipients, err = c.registry.GetClientIDsFromSession(groupID, *sessionID)
	} else {
		recipients, err = c.registry.GetClientIDsFromGroup(groupID)
	}
	if err != nil {
		c.logger.Warn("notification target vanished before delivery", slog.String("error", err.Error()))
		return
	}

	excluded := make(map[coordinator.ClientID]struct{}, len(n.Filter)+1)
	for _, id := range n.Filter {
		excluded[id] = struct{}{}
	}
	if excludeSelf {
		excluded[c.id] = struct{}{}
	}

	envelope := jsonrpc.NewNotify(n.Method, n.Message)
	for _, recipient := range recipients {
		if _, skip := excluded[recipient]; skip {
			continue
		}
		sink, ok := c.registry.GetClient(recipient)
		if !ok {
			c.logger.Warn("notification recipient no longer registered",
				slog.String("recipient", recipient.String()))
			continue
		}
		c.deliver(sink, envelope)
	}
}
