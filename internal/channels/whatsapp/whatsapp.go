// Package whatsapp implements the WhatsApp channel against the Meta Cloud
// API: an outbound sender hitting the Graph messages endpoint and an inbound
// webhook that feeds the message bus.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/channels"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/config"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

const textOnlyReply = "Sorry, I can only process text messages at the moment."

// Channel sends and receives WhatsApp messages through the Cloud API.
// Inbound traffic arrives over the webhook handler (mounted on the gateway
// mux); there is no long-lived connection to hold, so Start only flips the
// running flag.
type Channel struct {
	cfg     config.WhatsAppConfig
	bus     *bus.MessageBus
	client  *http.Client
	limiter *rate.Limiter
	running bool
}

func New(cfg config.WhatsAppConfig, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone_number_id is required")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("whatsapp access token is required")
	}
	sendsPerSec := cfg.SendsPerSec
	if sendsPerSec <= 0 {
		sendsPerSec = 10
	}
	return &Channel{
		cfg:     cfg,
		bus:     msgBus,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(sendsPerSec), sendsPerSec),
	}, nil
}

func (c *Channel) Name() string { return string(identity.ChannelWhatsApp) }

func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting whatsapp channel", "phone_number_id", c.cfg.PhoneNumberID)
	c.running = true
	return nil
}

func (c *Channel) Stop(_ context.Context) error {
	c.running = false
	return nil
}

func (c *Channel) IsRunning() bool { return c.running }

// Send delivers an outbound message to the user's phone number, applying
// WhatsApp-specific formatting.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	return c.SendText(ctx, msg.User.RawID, channels.FormatWhatsApp(msg))
}

// SendText posts a plain text message to the Cloud API messages endpoint.
func (c *Channel) SendText(ctx context.Context, to, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase(), c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Channel) apiBase() string {
	base := c.cfg.APIBase
	if base == "" {
		base = "https://graph.facebook.com/v18.0"
	}
	return strings.TrimRight(base, "/")
}
