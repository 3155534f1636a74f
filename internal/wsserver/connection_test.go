package wsserver_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
	"github.com/coinfabrik/mpc-coordinator/internal/dispatch"
	"github.com/coinfabrik/mpc-coordinator/internal/wsserver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testClient is a thin wire helper around a raw websocket.Conn, built the
// same way a real MPC party would talk to the endpoint: no internal package
// access, just JSON frames.
type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, wsURL string) *testClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) call(id int, method string, params any) map[string]json.RawMessage {
	c.t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params}
	if err := c.conn.WriteJSON(req); err != nil {
		c.t.Fatalf("WriteJSON: %v", err)
	}
	return c.readMatchingID(id)
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "method": method, "params": params}
	if err := c.conn.WriteJSON(req); err != nil {
		c.t.Fatalf("WriteJSON: %v", err)
	}
}

// readMatchingID reads frames until one carries the given request id,
// skipping any notifications that arrive first.
func (c *testClient) readMatchingID(id int) map[string]json.RawMessage {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]json.RawMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.t.Fatalf("ReadJSON: %v", err)
		}
		rawID, ok := msg["id"]
		if !ok {
			continue
		}
		var gotID int
		if err := json.Unmarshal(rawID, &gotID); err != nil {
			continue
		}
		if gotID == id {
			return msg
		}
	}
}

// readNotification reads frames until one carries the given method name
// with no id, used to observe fan-out delivered to a peer connection.
func (c *testClient) readNotification(method string) map[string]json.RawMessage {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]json.RawMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.t.Fatalf("ReadJSON: %v", err)
		}
		if _, hasID := msg["id"]; hasID {
			continue
		}
		var gotMethod string
		if err := json.Unmarshal(msg["method"], &gotMethod); err != nil {
			continue
		}
		if gotMethod == method {
			return msg
		}
	}
}

func setupTestServer(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	registry := coordinator.NewRegistry(logger)
	handler := dispatch.NewServiceHandler(logger)
	srv := wsserver.NewServer(registry, handler, logger)

	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	return "ws" + strings.TrimPrefix(httpSrv.URL, "http")
}

func TestGroupCreateAndJoin(t *testing.T) {
	t.Parallel()

	wsURL := setupTestServer(t)
	creator := dial(t, wsURL)

	resp := creator.call(1, "group_create", map[string]any{"parameters": map[string]int{"n": 2, "t": 1}})
	if _, ok := resp["error"]; ok {
		t.Fatalf("group_create returned an error: %s", resp["error"])
	}

	var result struct {
		Group struct {
			ID string `json:"id"`
		} `json:"group"`
	}
	if err := json.Unmarshal(resp["result"], &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Group.ID == "" {
		t.Fatal("group id is empty")
	}

	joiner := dial(t, wsURL)
	joinResp := joiner.call(1, "group_join", map[string]any{"groupId": result.Group.ID})
	if _, ok := joinResp["error"]; ok {
		t.Fatalf("group_join returned an error: %s", joinResp["error"])
	}
}

func TestSessionCreateNotifiesOtherGroupMembers(t *testing.T) {
	t.Parallel()

	wsURL := setupTestServer(t)
	creator := dial(t, wsURL)

	createResp := creator.call(1, "group_create", map[string]any{"parameters": map[string]int{"n": 2, "t": 1}})
	var group struct {
		Group struct {
			ID string `json:"id"`
		} `json:"group"`
	}
	if err := json.Unmarshal(createResp["result"], &group); err != nil {
		t.Fatalf("unmarshal group_create result: %v", err)
	}

	peer := dial(t, wsURL)
	if resp := peer.call(1, "group_join", map[string]any{"groupId": group.Group.ID}); resp["error"] != nil {
		t.Fatalf("peer group_join failed: %s", resp["error"])
	}

	sessResp := creator.call(2, "session_create", map[string]any{"groupId": group.Group.ID, "kind": "keygen"})
	if sessResp["error"] != nil {
		t.Fatalf("session_create failed: %s", sessResp["error"])
	}

	// The peer, not the creator, learns of the new session via notification.
	notification := peer.readNotification("session_created")
	if _, ok := notification["params"]; !ok {
		t.Fatal("session_created notification has no params")
	}
}

func TestSessionMessageRelayedToReceiver(t *testing.T) {
	t.Parallel()

	wsURL := setupTestServer(t)
	alice := dial(t, wsURL)

	createResp := alice.call(1, "group_create", map[string]any{"parameters": map[string]int{"n": 2, "t": 1}})
	var group struct {
		Group struct {
			ID string `json:"id"`
		} `json:"group"`
	}
	if err := json.Unmarshal(createResp["result"], &group); err != nil {
		t.Fatalf("unmarshal group_create: %v", err)
	}

	bob := dial(t, wsURL)
	if resp := bob.call(1, "group_join", map[string]any{"groupId": group.Group.ID}); resp["error"] != nil {
		t.Fatalf("bob group_join failed: %s", resp["error"])
	}

	sessResp := alice.call(2, "session_create", map[string]any{"groupId": group.Group.ID, "kind": "keygen"})
	var session struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(sessResp["result"], &session); err != nil {
		t.Fatalf("unmarshal session_create: %v", err)
	}
	// Drain bob's session_created notification before continuing.
	bob.readNotification("session_created")

	aliceLogin := alice.call(3, "session_login", map[string]any{
		"groupId": group.Group.ID, "sessionId": session.Session.ID, "partyNumber": 1,
	})
	if aliceLogin["error"] != nil {
		t.Fatalf("alice session_login failed: %s", aliceLogin["error"])
	}
	bobLogin := bob.call(2, "session_login", map[string]any{
		"groupId": group.Group.ID, "sessionId": session.Session.ID, "partyNumber": 2,
	})
	if bobLogin["error"] != nil {
		t.Fatalf("bob session_login failed: %s", bobLogin["error"])
	}
	// Bob's login fills the n=2 keygen session, so session_ready goes to
	// both members; drain it from both sides.
	alice.readNotification("session_ready")
	bob.readNotification("session_ready")

	alice.notify("session_message", map[string]any{
		"groupId": group.Group.ID, "sessionId": session.Session.ID, "receiver": 2, "message": "hello bob",
	})

	msg := bob.readNotification("session_message")
	var params struct {
		Sender  int    `json:"sender"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(msg["params"], &params); err != nil {
		t.Fatalf("unmarshal session_message params: %v", err)
	}
	if params.Sender != 1 {
		t.Errorf("sender = %d, want 1", params.Sender)
	}
	if params.Message != "hello bob" {
		t.Errorf("message = %q, want %q", params.Message, "hello bob")
	}
}

func TestUnknownMethodReturnsErrorResponse(t *testing.T) {
	t.Parallel()

	wsURL := setupTestServer(t)
	client := dial(t, wsURL)

	resp := client.call(1, "bogus_method", map[string]any{})
	if _, ok := resp["error"]; !ok {
		t.Fatal("expected an error response for an unknown method")
	}
}

func TestHTTPHandlerRejectsPlainRequest(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	registry := coordinator.NewRegistry(logger)
	handler := dispatch.NewServiceHandler(logger)
	srv := wsserver.NewServer(registry, handler, logger)

	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("plain HTTP GET should not be accepted as a successful, non-upgraded response")
	}
}
