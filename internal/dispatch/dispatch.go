// Package dispatch routes a decoded JSON-RPC request to the handler
// named by its method prefix, mutating the shared coordinator.Registry
// and appending fan-out directives to a per-request Plan.
package dispatch

import (
	"log/slog"
	"strings"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/jsonrpc"
)

// subrouteSeparator delimits the service prefix from the rest of a
// method name, e.g. "group_create" -> "group", "create".
const subrouteSeparator = "_"

// Context carries everything a Service needs to handle one request:
// the caller's identity, the shared registry, and the plan it should
// append notifications to.
type Context struct {
	ClientID coordinator.ClientID
	Registry *coordinator.Registry
	Plan     *Plan
}

// Service handles every method under one route prefix (e.g. "group" or
// "session"). Handle returns nil when the method is a notification-only
// request that never replies to its caller (session_message), or a
// non-nil Response otherwise -- including the
// MethodNotFound response for an unrecognised method within this
// service's prefix.
type Service interface {
	Handle(ctx Context, req *jsonrpc.Request) *jsonrpc.Response
}

// ServiceHandler routes requests to services by their method's route
// prefix.
type ServiceHandler struct {
	services map[string]Service
	logger   *slog.Logger
}

// NewServiceHandler constructs the handler with the group and session
// services wired in.
func NewServiceHandler(logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{
		services: map[string]Service{
			groupRoutePrefix:   &GroupService{logger: logger.With(slog.String("component", "dispatch.group"))},
			sessionRoutePrefix: &SessionService{logger: logger.With(slog.String("component", "dispatch.session"))},
		},
		logger: logger.With(slog.String("component", "dispatch")),
	}
}

// Serve routes req to its service, returning the response to send to
// the caller (nil for a notification-only method). A method with fewer
// than two underscore-delimited segments, or whose prefix names no
// registered service, yields MethodNotFound.
func (h *ServiceHandler) Serve(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	prefix, _, found := strings.Cut(req.Method, subrouteSeparator)
	if !found {
		return jsonrpc.NewError(req.ID, jsonrpc.MethodNotFound(req.Method))
	}

	service, ok := h.services[prefix]
	if !ok {
		return jsonrpc.NewError(req.ID, jsonrpc.MethodNotFound(req.Method))
	}

	return service.Handle(ctx, req)
}
