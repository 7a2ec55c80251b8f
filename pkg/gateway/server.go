package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harun/queuebot/internal/observability"
	"github.com/harun/queuebot/internal/tracing"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	transportName   = "gateway"
	secretHeader    = "X-Queuebot-Secret"
	traceHeader     = "X-Trace-Id"
	maxRequestBytes = 64 << 10
	shutdownTimeout = 5 * time.Second
)

var validate = validator.New()

// Dispatcher applies parsed commands to the queue registry
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd dispatch.Command) (dispatch.Outcome, error)
}

// Server accepts queue commands over WebSocket (/ws) and HTTP (/command) and
// serves /metrics and /healthz
type Server struct {
	addr           string
	server         *http.Server
	listener       net.Listener
	upgrader       websocket.Upgrader
	clients        *ClientRegistry
	authHandler    *AuthHandler
	broadcaster    *EventBroadcaster
	dispatcher     Dispatcher
	presenter      *dispatch.Presenter
	metrics        bool
	rateLimit      int
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Host              string
	Port              int
	SharedSecret      string
	Metrics           bool
	RequestsPerMinute int
	Dispatcher        Dispatcher
	Logger            zerolog.Logger
}

// NewServer creates a new gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	logger := cfg.Logger.With().Str("component", transportName).Logger()
	clients := NewClientRegistry()

	return &Server{
		addr:        net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		clients:     clients,
		authHandler: NewAuthHandler(cfg.SharedSecret),
		broadcaster: NewEventBroadcaster(clients, logger),
		dispatcher:  cfg.Dispatcher,
		presenter:   dispatch.NewPresenter("", nil),
		metrics:     cfg.Metrics,
		rateLimit:   cfg.RequestsPerMinute,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

// Handler returns the HTTP routes of the gateway
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/command", s.handleHTTPCommand)
	if s.metrics {
		mux.Handle("/metrics", observability.MetricsHandler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Starting gateway server")

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Addr returns the bound address once started, otherwise the configured one
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop closes client connections and shuts the HTTP server down
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	s.broadcaster.Broadcast("server.shutdown", map[string]interface{}{
		"message": "Server is shutting down",
	})

	for _, client := range s.clients.GetAll() {
		_ = client.Conn.Close()
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}

// handleWebSocket upgrades the connection and runs its read loop
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	conn.SetReadLimit(maxRequestBytes)

	now := time.Now()
	client := &Client{
		ID:           uuid.NewString(),
		Conn:         conn,
		ConnectedAt:  now,
		LastActivity: now,
		IPAddress:    r.RemoteAddr,
		RateLimiter:  NewClientRateLimiter(s.rateLimit),
	}

	if err := s.greet(client); err != nil {
		s.logger.Error().Err(err).Str("clientId", client.ID).Msg("Failed to greet client")
		_ = conn.Close()
		return
	}

	s.clients.Add(client)

	s.logger.Info().
		Str("clientId", client.ID).
		Str("ip", r.RemoteAddr).
		Bool("authenticated", client.IsAuthenticated()).
		Msg("Client connected")

	go s.handleClient(client)
}

// greet sends the auth challenge, or admits the client when no secret is set
func (s *Server) greet(client *Client) error {
	if !s.authHandler.Required() {
		client.MarkAuthenticated()
		return client.WriteJSON(AuthResult{Event: "auth.success", Success: true})
	}

	challenge, err := s.authHandler.GenerateChallenge()
	if err != nil {
		return err
	}

	client.Challenge = challenge
	client.SetState(StateAuthenticating)

	return client.WriteJSON(AuthChallenge{
		Event:     "auth.challenge",
		Challenge: challenge,
	})
}

// handleClient reads frames one at a time, so a connection's commands are
// dispatched in the order they were sent
func (s *Server) handleClient(client *Client) {
	defer func() {
		_ = client.Conn.Close()
		client.SetState(StateDisconnected)
		s.clients.Remove(client.ID)
		s.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("clientId", client.ID).Msg("WebSocket error")
			}
			return
		}

		s.clients.UpdateActivity(client.ID)

		if !s.handleMessage(client, message) {
			return
		}
	}
}

// handleMessage processes one frame. It returns false when the connection
// must be closed.
func (s *Server) handleMessage(client *Client, message []byte) bool {
	var req CommandRequest
	if err := json.Unmarshal(message, &req); err != nil {
		s.sendError(client, "", ParseError, "invalid JSON")
		return true
	}

	if req.Method == "auth.response" {
		return s.handleAuthMessage(client, req.Signature)
	}

	if !client.IsAuthenticated() {
		s.sendError(client, req.ID, AuthenticationRequired, "Authentication required")
		return true
	}

	if !client.RateLimiter.Allow() {
		s.sendError(client, req.ID, RateLimitExceeded, "rate limit exceeded")
		return true
	}

	ctx := tracing.NewCommandContext(context.Background(), transportName, req.Actor.ID)
	resp := s.execute(ctx, req)

	if err := client.WriteJSON(resp); err != nil {
		observability.RecordReplyError(transportName)
		s.logger.Error().
			Err(err).
			Str("clientId", client.ID).
			Str("requestId", req.ID).
			Msg("Failed to send response")
		return false
	}

	if resp.Reply != nil && resp.Reply.Notice != "" {
		s.broadcaster.BroadcastExcept(client.ID, "queue.notice", map[string]interface{}{
			"text": resp.Reply.Notice,
		})
	}

	return true
}

// execute validates and dispatches one request
func (s *Server) execute(ctx context.Context, req CommandRequest) CommandResponse {
	resp := CommandResponse{ID: req.ID, Type: "reply"}

	if err := validate.Struct(req); err != nil {
		resp.Error = &Error{Code: InvalidRequest, Message: err.Error()}
		return resp
	}

	// Args are tokenized like chat text so a queue name never holds whitespace
	args := lo.FlatMap(req.Args, func(arg string, _ int) []string {
		return strings.Fields(arg)
	})

	cmd := dispatch.NewCommand("", req.Command, args, req.Actor.Participant())
	outcome, err := s.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		logger := tracing.LoggerFromContext(ctx, s.logger)
		logger.Error().
			Err(err).
			Str("command", cmd.Name).
			Msg("Failed to dispatch command")
		resp.Error = &Error{Code: InternalError, Message: "command could not be processed"}
		return resp
	}

	reply := s.presenter.Render(outcome)
	resp.Reply = &reply
	return resp
}

// handleAuthMessage handles authentication messages
func (s *Server) handleAuthMessage(client *Client, signature string) bool {
	result := s.authHandler.HandleAuthResponse(client, signature)

	if err := client.WriteJSON(result); err != nil {
		s.logger.Error().Err(err).Str("clientId", client.ID).Msg("Failed to send auth result")
		return false
	}

	if result.Success {
		s.logger.Info().Str("clientId", client.ID).Msg("Client authenticated")
		return true
	}

	s.logger.Warn().
		Str("clientId", client.ID).
		Str("reason", result.Message).
		Msg("Authentication failed")

	return client.AuthAttempts < maxAuthAttempts
}

// handleHTTPCommand runs a single command from a POST /command body
func (s *Server) handleHTTPCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authHandler.VerifySecret(r.Header.Get(secretHeader)) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req CommandRequest
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(CommandResponse{
			Type:  "reply",
			Error: &Error{Code: ParseError, Message: "invalid JSON"},
		})
		return
	}

	ctx := tracing.NewCommandContext(r.Context(), transportName, req.Actor.ID)
	if traceID := r.Header.Get(traceHeader); traceID != "" {
		ctx = tracing.WithTraceID(ctx, traceID)
	}

	resp := s.execute(ctx, req)

	status := http.StatusOK
	if resp.Error != nil {
		status = http.StatusBadRequest
		if resp.Error.Code == InternalError {
			status = http.StatusInternalServerError
		}
	}

	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		observability.RecordReplyError(transportName)
		logger := tracing.LoggerFromContext(ctx, s.logger)
		logger.Error().Err(err).Msg("Failed to encode response")
	}

	if resp.Reply != nil && resp.Reply.Notice != "" {
		s.broadcaster.Broadcast("queue.notice", map[string]interface{}{
			"text": resp.Reply.Notice,
		})
	}
}

// sendError sends an error response to a client
func (s *Server) sendError(client *Client, requestID string, code int, message string) {
	resp := CommandResponse{
		ID:    requestID,
		Type:  "reply",
		Error: &Error{Code: code, Message: message},
	}

	if err := client.WriteJSON(resp); err != nil {
		s.logger.Error().
			Err(err).
			Str("clientId", client.ID).
			Msg("Failed to send error response")
	}
}

// Broadcast sends an event to all authenticated clients
func (s *Server) Broadcast(event string, data interface{}) {
	s.broadcaster.Broadcast(event, data)
}

// GetConnectedClients returns information about all connected clients
func (s *Server) GetConnectedClients() []ClientInfo {
	return s.clients.GetConnectedClients()
}
