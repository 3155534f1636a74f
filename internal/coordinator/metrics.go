package coordinator

// MetricsReporter receives counter/gauge events from the Registry. Never
// nil in practice -- NewRegistry defaults to noopMetrics when none is
// supplied.
type MetricsReporter interface {
	// ClientConnected is called when a client registers with the
	// registry.
	ClientConnected()
	// ClientDisconnected is called when a client is dropped.
	ClientDisconnected()
	// GroupCreated is called when a new group is added.
	GroupCreated()
	// GroupRemoved is called when a group becomes empty and is deleted.
	GroupRemoved()
	// SessionCreated is called when a new session is added to a group.
	SessionCreated()
	// SessionReady is called when a session crosses its threshold.
	SessionReady()
}

// noopMetrics discards every event. It is the Registry's default
// MetricsReporter.
type noopMetrics struct{}

func (noopMetrics) ClientConnected()    {}
func (noopMetrics) ClientDisconnected() {}
func (noopMetrics) GroupCreated()       {}
func (noopMetrics) GroupRemoved()       {}
func (noopMetrics) SessionCreated()     {}
func (noopMetrics) SessionReady()       {}
