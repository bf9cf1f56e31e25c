// Package pipeline consumes inbound user messages and runs them through the
// routing decision: forward to an open escalation thread, open a new
// escalation, or auto-reply. Every turn ends with an outbound message and a
// persisted chat row.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/escalation"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/responder"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
)

const (
	analysisTimeout = 10 * time.Second
	generateTimeout = 30 * time.Second
)

// Notifier is the pipeline's view of the escalation notifier.
type Notifier interface {
	Publish(ctx context.Context, user identity.UserRef, originalMessage string) (escalation.Escalation, error)
	ForwardUserMessage(ctx context.Context, esc escalation.Escalation, text string) error
}

// Pipeline handles inbound messages end to end.
type Pipeline struct {
	engine    *escalation.Engine
	notifier  Notifier
	responder responder.Responder
	bus       *bus.MessageBus
	stores    *store.Stores
	tracer    trace.Tracer
}

func New(engine *escalation.Engine, n Notifier, resp responder.Responder, msgBus *bus.MessageBus, stores *store.Stores) *Pipeline {
	return &Pipeline{
		engine:    engine,
		notifier:  n,
		responder: resp,
		bus:       msgBus,
		stores:    stores,
		tracer:    otel.Tracer("pipeline"),
	}
}

// Run consumes inbound messages until ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("message pipeline started")
	for {
		msg, ok := p.bus.ConsumeInbound(ctx)
		if !ok {
			if ctx.Err() != nil {
				slog.Info("message pipeline stopped")
				return ctx.Err()
			}
			continue
		}
		p.Handle(ctx, msg)
	}
}

// Handle processes one inbound message. Errors never propagate to the
// gateways: the user always receives some reply.
func (p *Pipeline) Handle(ctx context.Context, msg bus.InboundMessage) {
	ctx, span := p.tracer.Start(ctx, "pipeline.handle",
		trace.WithAttributes(
			attribute.String("channel", string(msg.User.Channel)),
			attribute.Bool("voice", msg.Voice != nil),
		),
	)
	defer span.End()

	if msg.Voice != nil {
		p.handleVoice(ctx, msg)
		return
	}
	if msg.Text == "" {
		return
	}

	language := msg.Language
	if language == "" {
		language = p.detectLanguage(ctx, msg.Text)
	}
	sentiment := p.analyzeSentiment(ctx, msg.Text)
	span.SetAttributes(
		attribute.String("language", language),
		attribute.String("sentiment", sentiment),
	)

	decision := p.engine.Decide(msg.User, msg.Text, language, sentiment)
	span.SetAttributes(attribute.String("decision", decision.Action.String()))

	var reply string
	var escalated bool
	switch decision.Action {
	case escalation.ActionForwardToAgent:
		reply = p.forwardToAgent(ctx, decision.Escalation, msg.Text, language)
		escalated = true
	case escalation.ActionEscalate:
		reply = p.escalate(ctx, msg.User, msg.Text, language)
		escalated = true
	default:
		reply = p.autoReply(ctx, msg.Text, language, sentiment)
	}

	p.bus.PublishOutbound(bus.OutboundMessage{
		User:      msg.User,
		Text:      reply,
		Type:      bus.TypeBot,
		Sentiment: sentiment,
		Language:  language,
		Escalated: escalated,
		Timestamp: time.Now(),
	})

	p.persistTurn(ctx, msg.User, msg.Text, reply, sentiment, language, escalated)
}

// handleVoice stores the voice payload and acknowledges it. Voice content
// is never transcribed, analyzed, or escalated.
func (p *Pipeline) handleVoice(ctx context.Context, msg bus.InboundMessage) {
	language := msg.Language
	if language == "" {
		language = "en"
	}

	err := p.stores.Voices.SaveVoiceMessage(ctx, store.VoiceMessage{
		User:      msg.User,
		AudioData: msg.Voice.AudioData,
		Duration:  msg.Voice.Duration,
		MimeType:  msg.Voice.MimeType,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Error("voice message store failed", "user", msg.User, "error", err)
	}

	ack := responder.VoiceAck(language)
	p.bus.PublishOutbound(bus.OutboundMessage{
		User:      msg.User,
		Text:      ack,
		Type:      bus.TypeBot,
		Sentiment: "neutral",
		Language:  language,
		Timestamp: time.Now(),
	})

	p.persistTurn(ctx, msg.User, "🎤 Voice message", ack, "neutral", language, false)
}

// forwardToAgent posts the message into the open escalation thread and acks
// the user. A failed forward gets the retry-please reply instead.
func (p *Pipeline) forwardToAgent(ctx context.Context, esc escalation.Escalation, text, language string) string {
	if err := p.notifier.ForwardUserMessage(ctx, esc, text); err != nil {
		slog.Error("forward to agent thread failed",
			"escalation_id", esc.ID, "user", esc.User, "error", err)
		return responder.ForwardFailed(language)
	}
	return responder.ForwardAck(language)
}

// escalate opens an escalation and notifies the workspace. The user gets the
// escalation ack even when the notice cannot be posted: the next message
// will retry because no orphan record is left behind.
func (p *Pipeline) escalate(ctx context.Context, user identity.UserRef, text, language string) string {
	if _, err := p.notifier.Publish(ctx, user, text); err != nil {
		slog.Error("escalation publish failed", "user", user, "error", err)
	}
	return responder.EscalationAck(language)
}

func (p *Pipeline) autoReply(ctx context.Context, text, language, sentiment string) string {
	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	reply, err := p.responder.Generate(genCtx, text, responder.Context{
		Language:  language,
		Sentiment: sentiment,
	})
	if err != nil {
		slog.Error("response generation failed", "error", err)
		return responder.GenericError(language)
	}
	return reply
}

func (p *Pipeline) detectLanguage(ctx context.Context, text string) string {
	dctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()
	return p.responder.DetectLanguage(dctx, text)
}

func (p *Pipeline) analyzeSentiment(ctx context.Context, text string) string {
	actx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()
	return p.responder.AnalyzeSentiment(actx, text)
}

func (p *Pipeline) persistTurn(ctx context.Context, user identity.UserRef, userMsg, botReply, sentiment, language string, escalated bool) {
	err := p.stores.Chats.SaveMessage(ctx, store.ChatMessage{
		User:        user,
		UserMessage: userMsg,
		BotResponse: botReply,
		Sentiment:   sentiment,
		Language:    language,
		Escalated:   escalated,
		Channel:     string(user.Channel),
		Timestamp:   time.Now(),
	})
	if err != nil {
		slog.Error("chat persist failed", "user", user, "error", err)
	}
	if err := p.stores.Users.TouchActivity(ctx, user); err != nil {
		slog.Error("user activity update failed", "user", user, "error", err)
	}
}
