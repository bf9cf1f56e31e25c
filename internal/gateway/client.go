package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/channels"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/pkg/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // voice payloads are base64 blobs
	sendQueueSize  = 32
)

// inboundFrame is the client → server envelope.
type inboundFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one live connection session bound to a user. Admin sessions
// additionally receive broadcast events.
type Client struct {
	conn   *websocket.Conn
	server *Server
	user   identity.UserRef
	admin  bool
	send   chan protocol.EventFrame
	done   chan struct{}
}

func NewClient(conn *websocket.Conn, server *Server, user identity.UserRef) *Client {
	return &Client{
		conn:   conn,
		server: server,
		user:   user,
		send:   make(chan protocol.EventFrame, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// SendEvent queues an event for delivery. A full queue drops the event
// rather than blocking the dispatcher.
func (c *Client) SendEvent(frame protocol.EventFrame) error {
	select {
	case <-c.done:
		return fmt.Errorf("session closed")
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("send queue full")
	}
}

// Close terminates the session. Safe to call more than once.
func (c *Client) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.conn.Close()
}

// Run pumps the connection until it drops or ctx is canceled.
func (c *Client) Run(ctx context.Context) {
	go c.writeLoop()
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "user", c.user, "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("invalid message format")
			continue
		}

		switch frame.Event {
		case protocol.EventChatMessage:
			c.handleChatMessage(frame.Payload)
		default:
			slog.Debug("unknown client event", "event", frame.Event, "user", c.user)
		}
	}
}

func (c *Client) handleChatMessage(payload json.RawMessage) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	inbound := bus.InboundMessage{
		User:     c.user,
		Language: msg.Language,
	}

	if msg.Type == "voice" {
		if msg.AudioData == "" {
			c.sendError("empty voice message")
			return
		}
		inbound.Voice = &bus.VoiceData{
			AudioData: msg.AudioData,
			Duration:  msg.Duration,
			MimeType:  msg.MimeType,
			Timestamp: msg.Timestamp,
		}
	} else {
		text := channels.SanitizeMessage(msg.Message, c.server.cfg.Gateway.MaxMessageChars)
		if text == "" {
			c.sendError("empty message")
			return
		}
		inbound.Text = text
	}

	c.server.bus.PublishInbound(inbound)
}

func (c *Client) sendError(message string) {
	_ = c.SendEvent(protocol.EventFrame{
		Event:   protocol.EventError,
		Payload: protocol.ErrorEvent{Message: message},
	})
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				slog.Debug("websocket write failed", "user", c.user, "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
