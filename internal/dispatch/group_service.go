package dispatch

import (
	"log/slog"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/jsonrpc"
)

// groupRoutePrefix is the method-name prefix routed to GroupService.
const groupRoutePrefix = "group"

// GroupCreateRequest is the params shape for "group_create".
type GroupCreateRequest struct {
	Parameters coordinator.Parameters `json:"parameters"`
}

// GroupCreateResponse is the result shape for "group_create".
type GroupCreateResponse struct {
	Group coordinator.GroupSnapshot `json:"group"`
}

// GroupJoinRequest is the params shape for "group_join".
type GroupJoinRequest struct {
	GroupID coordinator.GroupID `json:"groupId"`
}

// GroupJoinResponse is the result shape for "group_join".
type GroupJoinResponse struct {
	Group coordinator.GroupSnapshot `json:"group"`
}

// GroupService handles group_create and group_join.
type GroupService struct {
	logger *slog.Logger
}

// Handle implements Service.
func (s *GroupService) Handle(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	switch req.Method {
	case "group_create":
		return s.groupCreate(ctx, req)
	case "group_join":
		return s.groupJoin(ctx, req)
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.MethodNotFound(req.Method))
	}
}

func (s *GroupService) groupCreate(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params GroupCreateRequest
	if err := req.Unmarshal(&params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	if err := params.Parameters.Validate(); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	group := ctx.Registry.AddGroup(params.Parameters)
	// join_group cannot fail here: the group was just created empty by
	// this same call, so neither GroupNotFound nor GroupFull can apply.
	group, err := ctx.Registry.JoinGroup(group.ID, ctx.ClientID)
	if err != nil {
		s.logger.Error("unexpected failure joining freshly created group",
			slog.String("group_id", group.ID.String()), slog.String("error", err.Error()))
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	s.logger.Info("group created", slog.String("group_id", group.ID.String()))
	return jsonrpc.NewResult(req.ID, GroupCreateResponse{Group: group})
}

func (s *GroupService) groupJoin(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params GroupJoinRequest
	if err := req.Unmarshal(&params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	group, err := ctx.Registry.JoinGroup(params.GroupID, ctx.ClientID)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	s.logger.Info("client joined group", slog.String("group_id", group.ID.String()))
	return jsonrpc.NewResult(req.ID, GroupJoinResponse{Group: group})
}
