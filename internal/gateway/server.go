// Package gateway is the HTTP/WebSocket front door: live connections for web
// and mobile clients, the chat history API, health, and the mount point for
// the channel webhooks.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/config"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/pkg/protocol"
)

// Server accepts live connections and serves the HTTP API. It doubles as
// the delivery channel for web and mobile users: outbound messages route
// here and land on the matching client session, or are dropped when the
// user is offline.
type Server struct {
	cfg   *config.Config
	bus   *bus.MessageBus
	chats store.ChatStore

	upgrader websocket.Upgrader
	clients  map[string]*Client // keyed by UserRef.String()
	mu       sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux
	running    bool
}

// NewServer creates a gateway server.
func NewServer(cfg *config.Config, msgBus *bus.MessageBus, chats store.ChatStore) *Server {
	s := &Server{
		cfg:     cfg,
		bus:     msgBus,
		chats:   chats,
		clients: make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	// Escalation alerts and other broadcast events fan out to connected
	// admin sessions.
	msgBus.Subscribe("gateway", s.pushEvent)
	return s
}

// pushEvent forwards a broadcast event to every connected admin session.
// Regular user sessions never see broadcast traffic.
func (s *Server) pushEvent(e bus.Event) {
	frame := protocol.EventFrame{Event: e.Name, Payload: e.Payload}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		if !client.admin {
			continue
		}
		if err := client.SendEvent(frame); err != nil {
			slog.Debug("broadcast to admin session failed", "user", client.user, "error", err)
		}
	}
}

// checkOrigin validates the connection origin against the allowed origins
// whitelist. No configured origins means allow all (dev mode); an empty
// Origin header (non-browser clients) is always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Gateway.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("origin rejected", "origin", origin)
	return false
}

// BuildMux creates and caches the HTTP mux. Webhook handlers are mounted by
// the caller via Handle before Start.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/chat/history", s.handleHistory)
	mux.HandleFunc("/api/chat/stats", s.handleStats)
	s.mux = mux
	return mux
}

// Handle mounts an additional handler (channel webhooks) on the gateway mux.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.BuildMux().Handle(pattern, handler)
}

// Name implements channels.Channel; the same server is registered under
// both the web and mobile identifiers.
func (s *Server) Name() string { return "gateway" }

// Start begins listening for connections.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("gateway starting", "addr", addr)
	s.running = true

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("gateway server stopped", "error", err)
		}
		s.running = false
	}()

	return nil
}

// Stop shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.running = false
	s.bus.Unsubscribe("gateway")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) IsRunning() bool { return s.running }

// Send delivers an outbound message to the user's live session. A user with
// no session gets the message dropped: live channels have no offline queue.
func (s *Server) Send(_ context.Context, msg bus.OutboundMessage) error {
	s.mu.RLock()
	client, ok := s.clients[msg.User.String()]
	s.mu.RUnlock()

	if !ok {
		slog.Debug("no live session for user, dropping message", "user", msg.User)
		return nil
	}

	frame := outboundFrame(msg)
	if err := client.SendEvent(frame); err != nil {
		return fmt.Errorf("send to %s: %w", msg.User, err)
	}
	return nil
}

// outboundFrame maps a bus message onto the wire event for its origin type.
func outboundFrame(msg bus.OutboundMessage) protocol.EventFrame {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if msg.Type == bus.TypeAdmin {
		return protocol.EventFrame{
			Event: protocol.EventAdminResponse,
			Payload: protocol.AdminResponse{
				Content:      msg.Text,
				AdminName:    msg.SenderName,
				Timestamp:    ts.Format(time.RFC3339),
				IsEscalation: true,
			},
		}
	}
	return protocol.EventFrame{
		Event: protocol.EventBotResponse,
		Payload: protocol.BotResponse{
			Message:   msg.Text,
			Sentiment: msg.Sentiment,
			Language:  msg.Language,
			Escalated: msg.Escalated,
			Timestamp: ts.Format(time.RFC3339),
		},
	}
}

// handleWebSocket upgrades the connection and runs the client session.
// Clients authenticate with ?user_id= plus the shared gateway token when
// one is configured; the channel is taken from ?channel= (web default).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if token := s.cfg.Gateway.Token; token != "" {
		got := r.URL.Query().Get("token")
		if got == "" {
			got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if got != token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	channel := identity.Channel(r.URL.Query().Get("channel"))
	if channel != identity.ChannelMobile {
		channel = identity.ChannelWeb
	}
	user := identity.UserRef{Channel: channel, RawID: userID}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, s, user)
	// Admin sessions (support dashboard) additionally receive broadcast
	// events like escalation alerts.
	if v := r.URL.Query().Get("admin"); v == "1" || v == "true" {
		client.admin = true
	}
	s.registerClient(client)
	defer func() {
		s.unregisterClient(client)
		client.Close()
	}()

	client.Run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}

// handleHistory serves the recent chat turns for a user.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}
	user := identity.Parse(userID)

	turns, err := s.chats.History(r.Context(), user, 50)
	if err != nil {
		slog.Error("history query failed", "user", user, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	type turn struct {
		UserMessage string `json:"userMessage"`
		BotResponse string `json:"botResponse"`
		Sentiment   string `json:"sentiment,omitempty"`
		Escalated   bool   `json:"escalated"`
		Timestamp   string `json:"timestamp"`
	}
	out := make([]turn, 0, len(turns))
	for _, tr := range turns {
		out = append(out, turn{
			UserMessage: tr.UserMessage,
			BotResponse: tr.BotResponse,
			Sentiment:   tr.Sentiment,
			Escalated:   tr.Escalated,
			Timestamp:   tr.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"messages": out})
}

// handleStats serves a user's aggregate chat statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, `{"error":"user_id required"}`, http.StatusBadRequest)
		return
	}
	user := identity.Parse(userID)

	stats, err := s.chats.UserStats(r.Context(), user)
	if err != nil {
		slog.Error("stats query failed", "user", user, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	out := map[string]any{
		"totalMessages":   stats.TotalMessages,
		"sentimentCounts": stats.SentimentCounts,
		"escalationCount": stats.EscalationCount,
	}
	if !stats.LastActivity.IsZero() {
		out["lastActivity"] = stats.LastActivity.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) registerClient(c *Client) {
	key := c.user.String()
	s.mu.Lock()
	if old, ok := s.clients[key]; ok {
		old.Close()
	}
	s.clients[key] = c
	s.mu.Unlock()
	slog.Info("client connected", "user", c.user)
}

func (s *Server) unregisterClient(c *Client) {
	key := c.user.String()
	s.mu.Lock()
	if s.clients[key] == c {
		delete(s.clients, key)
	}
	s.mu.Unlock()
	slog.Info("client disconnected", "user", c.user)
}
