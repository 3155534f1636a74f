package dispatch

import (
	"encoding/json"
	"log/slog"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/jsonrpc"
)

// sessionRoutePrefix is the method-name prefix routed to SessionService.
const sessionRoutePrefix = "session"

// Notification method names emitted by this service.
const (
	eventSessionCreated = "session_created"
	eventSessionReady   = "session_ready"
	eventSessionMessage = "session_message"
)

// SessionCreateRequest is the params shape for "session_create".
type SessionCreateRequest struct {
	GroupID coordinator.GroupID     `json:"groupId"`
	Kind    coordinator.SessionKind `json:"kind"`
	Value   json.RawMessage         `json:"value,omitempty"`
}

// SessionCreateResponse is the result shape for "session_create".
type SessionCreateResponse struct {
	Session coordinator.SessionSnapshot `json:"session"`
}

// sessionCreatedNotification is the payload for the "session_created"
// notification: every other group member learns of the new session this
// way, while the creator learns via the response.
type sessionCreatedNotification struct {
	Group   coordinator.GroupSnapshot   `json:"group"`
	Session coordinator.SessionSnapshot `json:"session"`
}

// SessionSignupRequest is the params shape for "session_signup".
type SessionSignupRequest struct {
	GroupID   coordinator.GroupID   `json:"groupId"`
	SessionID coordinator.SessionID `json:"sessionId"`
}

// SessionSignupResponse is the result shape for "session_signup".
type SessionSignupResponse struct {
	Session     coordinator.SessionSnapshot `json:"session"`
	PartyNumber coordinator.PartyNumber     `json:"partyNumber"`
}

// SessionLoginRequest is the params shape for "session_login".
type SessionLoginRequest struct {
	GroupID     coordinator.GroupID     `json:"groupId"`
	SessionID   coordinator.SessionID   `json:"sessionId"`
	PartyNumber coordinator.PartyNumber `json:"partyNumber"`
}

// SessionLoginResponse is the result shape for "session_login".
type SessionLoginResponse struct {
	Session coordinator.SessionSnapshot `json:"session"`
}

// sessionReadyNotification is the payload for the "session_ready"
// notification, emitted to every group member (including the caller
// that just crossed the threshold) once a session's party count
// satisfies its threshold policy.
type sessionReadyNotification struct {
	Group   coordinator.GroupSnapshot   `json:"group"`
	Session coordinator.SessionSnapshot `json:"session"`
}

// SessionMessageRequest is the params shape for "session_message".
type SessionMessageRequest struct {
	GroupID   coordinator.GroupID      `json:"groupId"`
	SessionID coordinator.SessionID    `json:"sessionId"`
	Receiver  *coordinator.PartyNumber `json:"receiver,omitempty"`
	Message   json.RawMessage          `json:"message"`
}

// sessionMessageNotification is the payload relayed or broadcast for
// "session_message": sender is always the caller's own party number.
type sessionMessageNotification struct {
	GroupID   coordinator.GroupID     `json:"groupId"`
	SessionID coordinator.SessionID   `json:"sessionId"`
	Sender    coordinator.PartyNumber `json:"sender"`
	Message   json.RawMessage         `json:"message"`
}

// SessionService handles session_create, session_signup, session_login,
// and session_message.
type SessionService struct {
	logger *slog.Logger
}

// Handle implements Service.
func (s *SessionService) Handle(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	switch req.Method {
	case "session_create":
		return s.sessionCreate(ctx, req)
	case "session_signup":
		return s.sessionSignup(ctx, req)
	case "session_login":
		return s.sessionLogin(ctx, req)
	case "session_message":
		return s.sessionMessage(ctx, req)
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.MethodNotFound(req.Method))
	}
}

func (s *SessionService) sessionCreate(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params SessionCreateRequest
	if err := req.Unmarshal(&params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	group, session, err := ctx.Registry.AddSession(params.GroupID, params.Kind, params.Value)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	s.logger.Info("session created",
		slog.String("group_id", params.GroupID.String()),
		slog.String("session_id", session.ID.String()))

	// The creator learns of the session through this response; every
	// other group member learns through the notification below, which
	// filters the caller out.
	ctx.Plan.Group(params.GroupID, []coordinator.ClientID{ctx.ClientID}, eventSessionCreated,
		sessionCreatedNotification{Group: group, Session: session})

	return jsonrpc.NewResult(req.ID, SessionCreateResponse{Session: session})
}

func (s *SessionService) sessionSignup(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params SessionSignupRequest
	if err := req.Unmarshal(&params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	result, err := ctx.Registry.SignupSession(ctx.ClientID, params.GroupID, params.SessionID)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	if result.ThresholdReached {
		s.emitSessionReady(ctx, params.GroupID, result.Group, result.Session)
	}

	return jsonrpc.NewResult(req.ID, SessionSignupResponse{
		Session:     result.Session,
		PartyNumber: result.PartyNumber,
	})
}

func (s *SessionService) sessionLogin(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params SessionLoginRequest
	if err := req.Unmarshal(&params); err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	result, err := ctx.Registry.LoginSession(ctx.ClientID, params.GroupID, params.SessionID, params.PartyNumber)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.InvalidParams(err.Error()))
	}

	if result.ThresholdReached {
		s.emitSessionReady(ctx, params.GroupID, result.Group, result.Session)
	}

	return jsonrpc.NewResult(req.ID, SessionLoginResponse{Session: result.Session})
}

// emitSessionReady appends the session_ready notification with an empty
// filter: every party, including the one whose call just crossed the
// threshold, receives it.
func (s *SessionService) emitSessionReady(ctx Context, groupID coordinator.GroupID, group coordinator.GroupSnapshot, session coordinator.SessionSnapshot) {
	s.logger.Info("session threshold reached",
		slog.String("group_id", groupID.String()), slog.String("session_id", session.ID.String()))
	ctx.Plan.Group(groupID, nil, eventSessionReady, sessionReadyNotification{Group: group, Session: session})
}

// sessionMessage never replies to its caller, even on failure: this is
// the coordinator's documented behavior, not a bug to fix silently.
func (s *SessionService) sessionMessage(ctx Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params SessionMessageRequest
	if err := req.Unmarshal(&params); err != nil {
		s.logger.Warn("malformed session_message params", slog.String("error", err.Error()))
		return nil
	}

	senderParty, err := ctx.Registry.GetPartyNumberFromClientID(params.GroupID, params.SessionID, ctx.ClientID)
	if err != nil {
		s.logger.Warn("session_message from unregistered party", slog.String("error", err.Error()))
		return nil
	}
	if err := ctx.Registry.ValidateGroupAndSession(params.GroupID, params.SessionID); err != nil {
		s.logger.Warn("session_message on invalid group/session", slog.String("error", err.Error()))
		return nil
	}

	payload := sessionMessageNotification{
		GroupID:   params.GroupID,
		SessionID: params.SessionID,
		Sender:    senderParty,
		Message:   params.Message,
	}

	if params.Receiver != nil {
		receiverClient, err := ctx.Registry.GetClientIDFromPartyNumber(params.GroupID, params.SessionID, *params.Receiver)
		if err != nil {
			s.logger.Warn("session_message to unknown receiver", slog.String("error", err.Error()))
			return nil
		}
		ctx.Plan.Relay(eventSessionMessage, receiverClient, payload)
		return nil
	}

	// No receiver: broadcast to every other party in the session. The
	// Connection's Session fan-out always excludes the caller in
	// addition to Filter.
	ctx.Plan.Session(params.GroupID, params.SessionID, nil, eventSessionMessage, payload)
	return nil
}
