// Package config holds the supportrelay gateway configuration. Config files
// are JSON5; secrets (tokens, DSNs, API keys) come from the environment only
// and are never written back to disk.
package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the supportrelay gateway.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Responder ResponderConfig `json:"responder"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Email     EmailConfig     `json:"email,omitempty"`
	FollowUp  FollowUpConfig  `json:"followup,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	mu        sync.RWMutex
}

// GatewayConfig configures the live-connection server for web/mobile clients.
type GatewayConfig struct {
	Host            string              `json:"host"`
	Port            int                 `json:"port"`
	Token           string              `json:"-"` // from env SUPPORTRELAY_GATEWAY_TOKEN only
	AllowedOrigins  FlexibleStringSlice `json:"allowed_origins,omitempty"`
	MaxMessageChars int                 `json:"max_message_chars,omitempty"`
}

// ChannelsConfig contains per-channel configuration.
type ChannelsConfig struct {
	WhatsApp  WhatsAppConfig  `json:"whatsapp"`
	Workspace WorkspaceConfig `json:"workspace"`
}

// WhatsAppConfig configures the WhatsApp Cloud API channel.
type WhatsAppConfig struct {
	Enabled       bool   `json:"enabled"`
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"-"` // from env SUPPORTRELAY_WHATSAPP_ACCESS_TOKEN only
	VerifyToken   string `json:"-"` // from env SUPPORTRELAY_WHATSAPP_VERIFY_TOKEN only
	APIBase       string `json:"api_base,omitempty"` // default https://graph.facebook.com/v18.0
	SendsPerSec   int    `json:"sends_per_sec,omitempty"` // outbound pacing (default 10)
}

// WorkspaceConfig configures the agent workspace (Slack) integration.
// Socket Mode is the primary event source; the HTTP events webhook is also
// served for deployments that cannot hold an outbound socket.
type WorkspaceConfig struct {
	Enabled           bool   `json:"enabled"`
	BotToken          string `json:"-"` // xoxb-, from env SUPPORTRELAY_SLACK_BOT_TOKEN only
	AppToken          string `json:"-"` // xapp-, from env SUPPORTRELAY_SLACK_APP_TOKEN only
	SigningSecret     string `json:"-"` // from env SUPPORTRELAY_SLACK_SIGNING_SECRET only
	EscalationChannel string `json:"escalation_channel"` // channel ID the notices are posted to
	BotUserID         string `json:"bot_user_id,omitempty"`
}

// ResponderConfig configures the automated reply generator.
// Provider "static" uses the built-in canned responder (no API key needed).
type ResponderConfig struct {
	Provider    string  `json:"provider,omitempty"` // "openai" or "static" (default when no key)
	APIKey      string  `json:"-"`                  // from env SUPPORTRELAY_OPENAI_API_KEY only
	APIBase     string  `json:"api_base,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// DatabaseConfig configures Postgres persistence for chat logs and the
// escalation audit trail. Without a DSN the in-memory stores are used.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"` // from env SUPPORTRELAY_POSTGRES_DSN only
}

// EmailConfig configures the escalation alert email. Delivery is
// best-effort; when disabled or misconfigured the workspace notice is the
// only alert.
type EmailConfig struct {
	Enabled  bool                `json:"enabled"`
	SMTPHost string              `json:"smtp_host,omitempty"`
	SMTPPort int                 `json:"smtp_port,omitempty"` // default 587
	From     string              `json:"from,omitempty"`
	To       FlexibleStringSlice `json:"to,omitempty"`
	Username string              `json:"username,omitempty"`
	Password string              `json:"-"` // from env SUPPORTRELAY_SMTP_PASSWORD only
}

// FollowUpConfig configures delivery of queued follow-up reminders created
// by the schedule_call action. Reminders flush on each tick of the cron
// expression.
type FollowUpConfig struct {
	Cron string `json:"cron,omitempty"` // default "*/15 * * * *"
}

// TelemetryConfig configures OpenTelemetry trace export. When enabled,
// spans are exported to an OTLP-compatible backend.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // e.g. "localhost:4317"
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"` // default "supportrelay"
	Headers     map[string]string `json:"headers,omitempty"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
// Used by the config watcher on hot reload.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = src.Gateway
	c.Channels = src.Channels
	c.Responder = src.Responder
	c.Database = src.Database
	c.Email = src.Email
	c.FollowUp = src.FollowUp
	c.Telemetry = src.Telemetry
}

// Snapshot returns a copy of the current configuration data.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		Gateway:   c.Gateway,
		Channels:  c.Channels,
		Responder: c.Responder,
		Database:  c.Database,
		Email:     c.Email,
		FollowUp:  c.FollowUp,
		Telemetry: c.Telemetry,
	}
}
