package coordinator

// Sink is the producing end of a Connection's outbound queue. It is
// cloneable (a plain interface value) and producing-end only: the
// Registry holds one per connected client so that any handler, on any
// connection, can push a notification to any other client without
// touching that client's goroutines directly.
//
// Concrete implementations live in internal/wsserver (the consuming end
// stays with the Connection).
type Sink interface {
	// Send enqueues message for delivery. It returns an error if the
	// underlying queue has been closed (the connection is gone); the
	// caller's policy is to log and swallow such errors, never retry.
	Send(message []byte) error
}
