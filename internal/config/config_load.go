package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			MaxMessageChars: 1000,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				APIBase:     "https://graph.facebook.com/v18.0",
				SendsPerSec: 10,
			},
		},
		Responder: ResponderConfig{
			Provider:    "openai",
			APIBase:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   200,
			Temperature: 0.7,
		},
		FollowUp: FollowUpConfig{
			Cron: "*/15 * * * *",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "supportrelay",
		},
	}
}

// Load reads the config file at path, applies defaults for absent fields,
// then overlays secrets from the environment. A missing file is not an
// error: defaults + env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv overlays secrets. Secrets never live in the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SUPPORTRELAY_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("SUPPORTRELAY_POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("SUPPORTRELAY_WHATSAPP_ACCESS_TOKEN"); v != "" {
		cfg.Channels.WhatsApp.AccessToken = v
	}
	if v := os.Getenv("SUPPORTRELAY_WHATSAPP_VERIFY_TOKEN"); v != "" {
		cfg.Channels.WhatsApp.VerifyToken = v
	}
	if v := os.Getenv("SUPPORTRELAY_SLACK_BOT_TOKEN"); v != "" {
		cfg.Channels.Workspace.BotToken = v
	}
	if v := os.Getenv("SUPPORTRELAY_SLACK_APP_TOKEN"); v != "" {
		cfg.Channels.Workspace.AppToken = v
	}
	if v := os.Getenv("SUPPORTRELAY_SLACK_SIGNING_SECRET"); v != "" {
		cfg.Channels.Workspace.SigningSecret = v
	}
	if v := os.Getenv("SUPPORTRELAY_OPENAI_API_KEY"); v != "" {
		cfg.Responder.APIKey = v
	}
	if v := os.Getenv("SUPPORTRELAY_SMTP_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 5000
	}
	if cfg.Gateway.MaxMessageChars == 0 {
		cfg.Gateway.MaxMessageChars = 1000
	}
	if cfg.Channels.WhatsApp.APIBase == "" {
		cfg.Channels.WhatsApp.APIBase = "https://graph.facebook.com/v18.0"
	}
	if cfg.Channels.WhatsApp.SendsPerSec <= 0 {
		cfg.Channels.WhatsApp.SendsPerSec = 10
	}
	if cfg.Responder.APIKey == "" {
		cfg.Responder.Provider = "static"
	} else if cfg.Responder.Provider == "" {
		cfg.Responder.Provider = "openai"
	}
	if cfg.Responder.Model == "" {
		cfg.Responder.Model = "gpt-3.5-turbo"
	}
	if cfg.Responder.MaxTokens == 0 {
		cfg.Responder.MaxTokens = 200
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.FollowUp.Cron == "" {
		cfg.FollowUp.Cron = "*/15 * * * *"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "supportrelay"
	}
}
