// Package workspace runs the agent-workspace (Slack) side of the relay over
// Socket Mode. Events flow to the notifier: thread replies become user
// deliveries, button clicks become escalation actions. The workspace is
// never a delivery target for end-user messages.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/config"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/notifier"
)

// Channel is the Socket Mode listener for workspace events.
type Channel struct {
	client     *slack.Client
	socketMode *socketmode.Client
	notifier   *notifier.Notifier
	botUserID  string
	cancel     context.CancelFunc
	running    bool
}

// NewClient builds the Web API client for the workspace. Both the bot token
// (xoxb-) and the app token (xapp-) are required for Socket Mode.
func NewClient(cfg config.WorkspaceConfig) (*slack.Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("workspace bot token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("workspace app token is required for socket mode")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, fmt.Errorf("workspace app token must start with xapp-")
	}
	return slack.New(
		cfg.BotToken,
		slack.OptionAppLevelToken(cfg.AppToken),
	), nil
}

// New builds the Socket Mode listener around an existing client.
func New(cfg config.WorkspaceConfig, client *slack.Client, n *notifier.Notifier) *Channel {
	return &Channel{
		client:     client,
		socketMode: socketmode.New(client),
		notifier:   n,
		botUserID:  cfg.BotUserID,
	}
}

func (c *Channel) Name() string { return "workspace" }

// Start launches the Socket Mode run loop and event pump.
func (c *Channel) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		for evt := range c.socketMode.Events {
			c.handleEvent(runCtx, evt)
		}
	}()

	go func() {
		if err := c.socketMode.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("socket mode run ended", "error", err)
		}
	}()

	c.running = true
	return nil
}

func (c *Channel) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.running = false
	return nil
}

func (c *Channel) IsRunning() bool { return c.running }

// Send is unsupported: user-facing deliveries never route to the workspace.
// Agent-facing posts go through the notifier directly.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	return fmt.Errorf("workspace is not a delivery channel (user %s)", msg.User)
}

func (c *Channel) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		slog.Info("workspace: connecting to socket mode")

	case socketmode.EventTypeConnected:
		slog.Info("workspace: connected to socket mode")

	case socketmode.EventTypeConnectionError:
		slog.Warn("workspace: connection error", "data", evt.Data)

	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		c.socketMode.Ack(*evt.Request)
		c.handleEventsAPI(ctx, event)

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		c.socketMode.Ack(*evt.Request)
		c.notifier.DispatchInteraction(callback)
	}
}

func (c *Channel) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Human thread replies only: skip bot posts (including our own notices)
	// and top-level channel chatter.
	if ev.BotID != "" || ev.User == c.botUserID || ev.ThreadTimeStamp == "" || ev.Text == "" {
		return
	}

	replyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	c.notifier.OnAgentReply(replyCtx, ev.ThreadTimeStamp, ev.TimeStamp, ev.Text, ev.User)
}
