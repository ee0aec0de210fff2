// Package bridge lets an out-of-process language runtime serve as an
// ObjectHandler: object-macro loads and calls travel as JSON frames over
// yamux streams multiplexed on a single websocket connection. The Client
// side plugs into the engine; the Server side wraps the remote runtime.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/yamux"

	"github.com/hanspeak/kivescript/internal/reply"
)

// userFrom recovers the engine's request-scoped current user, which Call
// sends in the request's User field. Server does not pass it on: its
// Runtime is called with a context that carries no user.
func userFrom(ctx context.Context) string {
	return reply.UserFromContext(ctx)
}

// secretHeader authenticates both ends; the value comes from
// KIVESCRIPT_BRIDGE_SECRET on each side.
const secretHeader = "X-Bridge-Secret"

// request is one object-macro operation sent client → server. Each
// request travels on its own yamux stream, so responses can never be
// interleaved across concurrent calls.
type request struct {
	ID   string   `json:"id"`
	Op   string   `json:"op"` // "load" or "call"
	Name string   `json:"name"`
	Code []string `json:"code,omitempty"`
	Args []string `json:"args,omitempty"`
	User string   `json:"user,omitempty"`
}

type response struct {
	ID     string `json:"id"`
	Result string `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Client is an ObjectHandler whose Load and Call are served by a remote
// runtime reached over the bridge. It satisfies
// internal/handler.ObjectHandler, so it registers with
// Engine.SetHandler like any in-process handler.
type Client struct {
	url       string
	secret    string
	sessionID string

	mu      sync.Mutex
	wsConn  *websocket.Conn
	session *yamux.Session
}

// NewClient returns an unconnected Client for url (a ws:// or wss://
// endpoint). Call Start before registering it as a handler.
func NewClient(url, secret string) *Client {
	return &Client{
		url:       url,
		secret:    secret,
		sessionID: uuid.New().String(),
	}
}

// Start dials the bridge server and establishes the multiplexed session.
func (c *Client) Start(ctx context.Context) error {
	header := http.Header{}
	header.Set(secretHeader, c.secret)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.url, err)
	}

	session, err := yamux.Client(NewWebSocketRWC(conn), nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("yamux client: %w", err)
	}

	c.mu.Lock()
	c.wsConn = conn
	c.session = session
	c.mu.Unlock()

	log.Printf("Bridge session %s connected to %s", c.sessionID, c.url)
	return nil
}

// Load forwards an object macro's body to the remote runtime.
func (c *Client) Load(name string, code []string) error {
	resp, err := c.roundTrip(request{Op: "load", Name: name, Code: code})
	if err != nil {
		return err
	}
	if resp.Err != "" {
		return fmt.Errorf("bridge load %q: %s", name, resp.Err)
	}
	return nil
}

// Call invokes a previously loaded macro on the remote runtime.
func (c *Client) Call(ctx context.Context, name string, args []string) (string, error) {
	resp, err := c.roundTrip(request{Op: "call", Name: name, Args: args, User: userFrom(ctx)})
	if err != nil {
		return "", err
	}
	if resp.Err != "" {
		return "", fmt.Errorf("bridge call %q: %s", name, resp.Err)
	}
	return resp.Result, nil
}

func (c *Client) roundTrip(req request) (*response, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("bridge client not started")
	}

	stream, err := session.Open()
	if err != nil {
		return nil, fmt.Errorf("bridge stream open: %w", err)
	}
	defer stream.Close()

	req.ID = uuid.New().String()
	if err := json.NewEncoder(stream).Encode(&req); err != nil {
		return nil, fmt.Errorf("bridge send: %w", err)
	}

	var resp response
	if err := json.NewDecoder(stream).Decode(&resp); err != nil {
		return nil, fmt.Errorf("bridge recv: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("bridge response id mismatch: sent %s, got %s", req.ID, resp.ID)
	}
	return &resp, nil
}

// Close tears down the multiplexed session and the websocket under it.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	if c.wsConn != nil {
		c.wsConn.Close()
		c.wsConn = nil
	}
}
