package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/harun/queuebot/pkg/queue"
)

// Actor identifies the participant a gateway command is issued for
type Actor struct {
	ID          string `json:"id" validate:"required,max=128"`
	DisplayName string `json:"display_name,omitempty" validate:"max=128"`
}

// Participant converts the actor into a queue participant
func (a Actor) Participant() queue.Participant {
	return queue.Participant{ID: a.ID, DisplayName: a.DisplayName}
}

// CommandRequest is one inbound frame. Auth responses reuse the envelope
// with Method set to "auth.response".
type CommandRequest struct {
	ID        string   `json:"id,omitempty"`
	Method    string   `json:"method,omitempty"`
	Signature string   `json:"signature,omitempty"`
	Command   string   `json:"command" validate:"required,max=32"`
	Args      []string `json:"args,omitempty" validate:"max=8"`
	Actor     Actor    `json:"actor"`
}

// CommandResponse answers a single CommandRequest
type CommandResponse struct {
	ID    string          `json:"id,omitempty"`
	Type  string          `json:"type"`
	Reply *dispatch.Reply `json:"reply,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Error is a protocol level failure
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// EventMessage represents a server-initiated event
type EventMessage struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Seq       int64       `json:"seq"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// AuthChallenge represents an authentication challenge message
type AuthChallenge struct {
	Event     string `json:"event"`
	Challenge string `json:"challenge"`
}

// AuthResult represents the result of authentication
type AuthResult struct {
	Event   string `json:"event"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ClientInfo represents information about a connected client
type ClientInfo struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastActivity  time.Time `json:"lastActivity"`
	IPAddress     string    `json:"ipAddress"`
	Idle          bool      `json:"idle"`
}

// ClientState represents the state of a client connection
type ClientState int

const (
	StateConnecting ClientState = iota
	StateAuthenticating
	StateAuthenticated
	StateDisconnected
)

// Error codes, numbered after JSON-RPC 2.0
const (
	ParseError             = -32700
	InvalidRequest         = -32600
	InternalError          = -32603
	AuthenticationRequired = -32001
	RateLimitExceeded      = -32005
)

// Client represents a connected WebSocket client. Challenge and AuthAttempts
// belong to the connection's read loop; auth state is read by broadcasters too.
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Challenge    string
	ConnectedAt  time.Time
	LastActivity time.Time
	IPAddress    string
	AuthAttempts int
	RateLimiter  *ClientRateLimiter

	stateMu       sync.RWMutex
	authenticated bool
	state         ClientState

	writeMu sync.Mutex
}

// IsAuthenticated reports whether the client passed authentication
func (c *Client) IsAuthenticated() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.authenticated
}

// MarkAuthenticated moves the client into the authenticated state
func (c *Client) MarkAuthenticated() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.authenticated = true
	c.state = StateAuthenticated
}

// State returns the connection state
func (c *Client) State() ClientState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// SetState updates the connection state
func (c *Client) SetState(state ClientState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = state
}

// WriteJSON serializes writes from the read loop and the broadcaster
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// WriteMessage writes a raw frame
func (c *Client) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}
