package wsserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/dispatch"
)

// Server is the HTTP handler for the coordinator's single WebSocket
// endpoint: a GET request upgrades to a WebSocket connection.
type Server struct {
	registry *coordinator.Registry
	handler  *dispatch.ServiceHandler
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer constructs a Server. Origin checking is deliberately
// permissive: this coordinator is meant to sit behind a trusted network
// boundary rather than be exposed directly to browsers.
func NewServer(registry *coordinator.Registry, handler *dispatch.ServiceHandler, logger *slog.Logger) *Server {
	return &Server{
		registry: registry,
		handler:  handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "wsserver.server")),
	}
}

// ServeHTTP implements http.Handler, upgrading the request to a
// WebSocket and running its Connection until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	connection := NewConnection(conn, s.registry, s.handler, s.logger)
	connection.Serve()
	_ = conn.Close()
}
