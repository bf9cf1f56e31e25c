package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/channels"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/channels/whatsapp"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/channels/workspace"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/config"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/escalation"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/followup"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/gateway"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/notifier"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/pipeline"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/responder"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store/pg"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay (gateway, channels, pipeline)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracing(shutdownCtx)
	}()

	if err := run(ctx, cfg, cfgPath); err != nil && ctx.Err() == nil {
		slog.Error("relay stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("relay shut down")
}

func run(ctx context.Context, cfg *config.Config, cfgPath string) error {
	// Persistence: Postgres when a DSN is set, memory otherwise.
	var stores *store.Stores
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		pgStores, err := pg.NewPGStores(dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		stores = pgStores
		slog.Info("using postgres persistence")
	} else {
		stores = store.NewMemory()
		slog.Info("no postgres dsn, using in-memory persistence")
	}

	msgBus := bus.New()
	escStore := escalation.NewStore()
	engine := escalation.NewEngine(escStore)
	resp := buildResponder(cfg.Responder)

	manager := channels.NewManager(msgBus)

	// Gateway serves web and mobile live connections plus the HTTP API.
	gw := gateway.NewServer(cfg, msgBus, stores.Chats)
	manager.Register(identity.ChannelWeb, gw)
	manager.Register(identity.ChannelMobile, gw)

	// WhatsApp: outbound sender + webhook mounted on the gateway mux.
	if cfg.Channels.WhatsApp.Enabled {
		wa, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus)
		if err != nil {
			return fmt.Errorf("whatsapp channel: %w", err)
		}
		manager.Register(identity.ChannelWhatsApp, wa)
		gw.Handle("/api/whatsapp/webhook", wa.WebhookHandler(channels.NewWebhookRateLimiter()))
	}

	group, ctx := errgroup.WithContext(ctx)

	// Workspace integration: notifier + socket mode listener + follow-ups.
	var n *notifier.Notifier
	if cfg.Channels.Workspace.Enabled {
		slackClient, err := workspace.NewClient(cfg.Channels.Workspace)
		if err != nil {
			return fmt.Errorf("workspace client: %w", err)
		}
		n = notifier.New(slackClient, escStore, msgBus, stores.Audit, stores.Users, nil, cfg.Channels.Workspace.EscalationChannel)

		sched, err := followup.NewScheduler(cfg.FollowUp.Cron, notifierDeliver(n))
		if err != nil {
			return fmt.Errorf("follow-up scheduler: %w", err)
		}
		n.SetFollowUps(sched)
		group.Go(func() error { return ignoreCanceled(sched.Run(ctx)) })

		if cfg.Email.Enabled {
			mailer, err := notifier.NewEmailNotifier(cfg.Email)
			if err != nil {
				slog.Warn("escalation email disabled", "error", err)
			} else {
				n.SetEmailer(mailer)
			}
		}

		manager.Register(identity.ChannelWorkspace, workspace.New(cfg.Channels.Workspace, slackClient, n))

		// HTTP fallbacks for deployments without Socket Mode connectivity.
		secret := cfg.Channels.Workspace.SigningSecret
		gw.Handle("/api/slack/events", n.EventsHandler(secret))
		gw.Handle("/api/slack/interactive", n.InteractiveHandler(secret))
	} else {
		slog.Warn("workspace integration disabled, escalations will not reach agents")
	}

	pipe := pipeline.New(engine, pipelineNotifier(n), resp, msgBus, stores)
	group.Go(func() error { return ignoreCanceled(pipe.Run(ctx)) })

	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.StopAll(stopCtx)
	}()

	// Hot-reload non-secret config fields on file changes.
	go func() {
		if err := config.Watch(ctx, cfgPath, cfg, nil); err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		}
	}()

	<-ctx.Done()
	return group.Wait()
}

func buildResponder(cfg config.ResponderConfig) responder.Responder {
	if cfg.Provider == "openai" && cfg.APIKey != "" {
		slog.Info("using openai responder", "model", cfg.Model)
		return responder.NewOpenAIResponder(cfg.APIKey, cfg.APIBase, cfg.Model)
	}
	slog.Info("using static responder")
	return responder.NewStaticResponder()
}

// notifierDeliver adapts the notifier into the follow-up delivery callback.
func notifierDeliver(n *notifier.Notifier) followup.Deliver {
	return func(ctx context.Context, r followup.Reminder) error {
		return n.DeliverReminder(ctx, r.EscalationID, r.Agent)
	}
}

// pipelineNotifier wraps the optional notifier; with the workspace disabled
// the pipeline still acks escalations but nothing reaches an agent.
func pipelineNotifier(n *notifier.Notifier) pipeline.Notifier {
	if n != nil {
		return n
	}
	return disabledNotifier{}
}

type disabledNotifier struct{}

func (disabledNotifier) Publish(context.Context, identity.UserRef, string) (escalation.Escalation, error) {
	return escalation.Escalation{}, fmt.Errorf("workspace integration disabled")
}

func (disabledNotifier) ForwardUserMessage(context.Context, escalation.Escalation, string) error {
	return fmt.Errorf("workspace integration disabled")
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
