package whatsapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/channels"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// webhookPayload mirrors the Cloud API webhook envelope, narrowed to the
// fields the relay consumes.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []inboundWhatsApp `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundWhatsApp struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// WebhookHandler serves the Cloud API webhook: GET for Meta's subscription
// verification handshake, POST for message delivery. Mounted on the gateway
// mux at /api/whatsapp/webhook.
func (c *Channel) WebhookHandler(limiter *channels.WebhookRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			c.verifySubscription(w, r)
		case http.MethodPost:
			if limiter != nil {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				if !limiter.Allow(host) {
					http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
					return
				}
			}
			c.receiveMessages(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (c *Channel) verifySubscription(w http.ResponseWriter, r *http.Request) {
	// Without a configured verify token the handshake would accept any
	// caller (empty matches empty), so refuse it outright.
	if c.cfg.VerifyToken == "" {
		slog.Warn("whatsapp webhook verification rejected: no verify token configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == c.cfg.VerifyToken {
		slog.Info("whatsapp webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	slog.Warn("whatsapp webhook verification failed", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// receiveMessages always acknowledges with 200 so Meta does not retry;
// per-message failures are handled inline.
func (c *Channel) receiveMessages(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("whatsapp webhook decode failed", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if payload.Object == "whatsapp_business_account" {
		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				for _, msg := range change.Value.Messages {
					c.handleInbound(msg)
				}
			}
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (c *Channel) handleInbound(msg inboundWhatsApp) {
	user := identity.UserRef{Channel: identity.ChannelWhatsApp, RawID: msg.From}

	if msg.Type != "text" || msg.Text == nil || msg.Text.Body == "" {
		slog.Debug("unsupported whatsapp message type", "type", msg.Type, "from", msg.From)
		// Reply off the request goroutine; the webhook must ack fast.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := c.SendText(ctx, msg.From, textOnlyReply); err != nil {
				slog.Error("failed to send text-only notice", "error", err)
			}
		}()
		return
	}

	text := channels.SanitizeMessage(msg.Text.Body, 0)
	if text == "" {
		return
	}

	slog.Info("whatsapp message received", "user", user)
	c.bus.PublishInbound(bus.InboundMessage{
		User: user,
		Text: text,
		Metadata: map[string]string{
			"platform":     "whatsapp",
			"phone_number": msg.From,
		},
	})
}
