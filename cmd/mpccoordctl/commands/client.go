package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/coinfabrik/mpc-coordinator/internal/jsonrpc"
)

// wireRequest mirrors jsonrpc.Request's wire shape with a plain id this
// client controls directly, rather than round-tripping jsonrpc.ID.
type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  any             `json:"params,omitempty"`
}

type wireResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonrpc.Error  `json:"error"`
}

// Client is a minimal JSON-RPC client over the coordinator's single
// WebSocket endpoint: one request in flight at a time, notifications
// arriving in between are skipped rather than matched to a call.
type Client struct {
	conn   *websocket.Conn
	nextID int64
}

// Dial connects to the coordinator at addr (host:port, no scheme).
func Dial(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes a JSON-RPC request frame without waiting for a response.
// Use this for session_message, which the coordinator never answers
// (even on failure).
func (c *Client) Send(method string, params any) error {
	id := atomic.AddInt64(&c.nextID, 1)
	idRaw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal request id: %w", err)
	}

	req := wireRequest{JSONRPC: jsonrpc.Version, ID: idRaw, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// Call sends a JSON-RPC request and blocks for its response, skipping
// any notifications the coordinator sends in the meantime.
func (c *Client) Call(method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("marshal request id: %w", err)
	}

	req := wireRequest{JSONRPC: jsonrpc.Version, ID: idRaw, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		var resp wireResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		if len(resp.ID) == 0 || !bytes.Equal(resp.ID, idRaw) {
			// A notification, or a response to a different in-flight
			// call than this client ever makes -- skip it.
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}
