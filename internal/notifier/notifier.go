// Package notifier posts escalation notices into the agent workspace and
// handles the agent side of the conversation: action buttons on the notice,
// thread replies relayed back to the user, and message forwarding into the
// thread.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/escalation"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/responder"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/pkg/protocol"
)

// WorkspaceAPI is the slice of the Slack Web API the notifier uses. The
// concrete *slack.Client satisfies it; tests substitute a fake.
type WorkspaceAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

// FollowUpScheduler queues call-back reminders created by the schedule_call
// action.
type FollowUpScheduler interface {
	Schedule(escalationID, agentID string)
}

// EscalationEmailer sends an email alert when a conversation escalates.
// Strictly fire-and-forget: a failed email never fails the escalation.
type EscalationEmailer interface {
	SendEscalationAlert(esc escalation.Escalation) error
}

// Notifier owns the escalation notices in the workspace channel.
type Notifier struct {
	api       WorkspaceAPI
	store     *escalation.Store
	bus       *bus.MessageBus
	audit     store.EscalationAuditStore
	users     store.UserStore
	followups FollowUpScheduler
	emailer   EscalationEmailer
	channelID string
}

func New(api WorkspaceAPI, escStore *escalation.Store, msgBus *bus.MessageBus, audit store.EscalationAuditStore, users store.UserStore, followups FollowUpScheduler, channelID string) *Notifier {
	return &Notifier{
		api:       api,
		store:     escStore,
		bus:       msgBus,
		audit:     audit,
		users:     users,
		followups: followups,
		channelID: channelID,
	}
}

// Publish creates an escalation record for the user and posts its notice to
// the workspace channel. If the user already has an open escalation, the
// existing one is returned and no second notice is posted. If the notice
// post fails, the record is discarded so no escalation exists without a
// reachable notice; the error is returned for the caller to log.
func (n *Notifier) Publish(ctx context.Context, user identity.UserRef, originalMessage string) (escalation.Escalation, error) {
	unlock := n.store.LockUser(user)
	defer unlock()

	esc, err := n.store.Create(user, originalMessage)
	if errors.Is(err, escalation.ErrDuplicateActive) {
		slog.Debug("escalation already open, reusing", "user", user, "escalation_id", esc.ID)
		return esc, nil
	}
	if err != nil {
		return escalation.Escalation{}, err
	}

	_, ts, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(noticeBlocks(esc)...),
		slack.MsgOptionText(noticeFallback(esc), false),
	)
	if err != nil {
		n.store.Discard(esc.ID)
		return escalation.Escalation{}, fmt.Errorf("post escalation notice: %w", err)
	}

	if err := n.store.AttachThread(esc.ID, ts); err != nil {
		// Record vanished between create and attach; nothing to clean up.
		return escalation.Escalation{}, fmt.Errorf("attach thread: %w", err)
	}
	esc.ThreadRef = ts
	esc.Status = escalation.StatusActive

	n.recordAudit(ctx, esc, "created", "", originalMessage)
	n.broadcastAlert(esc)
	n.sendEmailAlert(esc)
	slog.Info("escalation published", "escalation_id", esc.ID, "user", user, "thread", ts)
	return esc, nil
}

// broadcastAlert pushes the escalation to subscribed admin sessions.
func (n *Notifier) broadcastAlert(esc escalation.Escalation) {
	n.bus.Broadcast(bus.Event{
		Name: protocol.EventEscalationAlert,
		Payload: protocol.EscalationAlert{
			EscalationID: esc.ID,
			UserID:       esc.User.String(),
			Channel:      string(esc.User.Channel),
			Message:      esc.OriginalMessage,
			Timestamp:    esc.CreatedAt.Format(time.RFC3339),
		},
	})
}

// sendEmailAlert fires the escalation email off the request path. Failures
// are logged and never surface to the chat flow.
func (n *Notifier) sendEmailAlert(esc escalation.Escalation) {
	if n.emailer == nil {
		return
	}
	go func() {
		if err := n.emailer.SendEscalationAlert(esc); err != nil {
			slog.Warn("escalation email failed", "escalation_id", esc.ID, "error", err)
		}
	}()
}

// ForwardUserMessage posts a user's message into their escalation thread.
func (n *Notifier) ForwardUserMessage(ctx context.Context, esc escalation.Escalation, text string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionTS(esc.ThreadRef),
		slack.MsgOptionText(fmt.Sprintf("💬 *%s:* %s", esc.User, text), false),
	)
	if err != nil {
		return fmt.Errorf("forward user message: %w", err)
	}
	return nil
}

// OnAgentAction handles a button click on an escalation notice. Actions are
// idempotent: a repeat click finds the transition already applied and only
// re-renders the notice.
func (n *Notifier) OnAgentAction(ctx context.Context, actionID, escalationID, agentID string) {
	esc, err := n.store.FindByEscalationID(escalationID)
	if err != nil {
		slog.Warn("agent action for unknown escalation", "action", actionID, "escalation_id", escalationID)
		return
	}

	switch actionID {
	case ActionTakeOver:
		n.handleTakeOver(ctx, esc, agentID)
	case ActionScheduleCall:
		n.handleScheduleCall(ctx, esc, agentID)
	case ActionMarkResolved:
		n.handleMarkResolved(ctx, esc, agentID)
	default:
		slog.Debug("unhandled action", "action", actionID)
		return
	}

	// Re-render the notice from current state regardless of whether the
	// transition applied, so stale buttons disappear.
	if current, err := n.store.FindByEscalationID(escalationID); err == nil {
		n.renderNotice(ctx, current)
	}
}

func (n *Notifier) handleTakeOver(ctx context.Context, esc escalation.Escalation, agentID string) {
	updated, err := n.store.Transition(esc.ID, escalation.StatusTakenOver, agentID)
	if errors.Is(err, escalation.ErrInvalidTransition) {
		slog.Debug("take_over already applied", "escalation_id", esc.ID)
		return
	}
	if err != nil {
		slog.Error("take_over failed", "escalation_id", esc.ID, "error", err)
		return
	}

	// The intro message goes out exactly once, on the transition that won.
	n.bus.PublishOutbound(bus.OutboundMessage{
		User:       updated.User,
		Text:       responder.AgentJoined(n.userLanguage(ctx, updated.User)),
		Type:       bus.TypeAdmin,
		SenderName: n.agentName(ctx, agentID),
		Timestamp:  time.Now(),
	})
	n.recordAudit(ctx, updated, "taken_over", agentID, "")
	slog.Info("escalation taken over", "escalation_id", esc.ID, "agent", agentID)
}

func (n *Notifier) handleScheduleCall(ctx context.Context, esc escalation.Escalation, agentID string) {
	if n.followups != nil {
		n.followups.Schedule(esc.ID, agentID)
	}
	_, err := n.api.PostEphemeralContext(ctx, n.channelID, agentID,
		slack.MsgOptionText(fmt.Sprintf("📞 Call-back reminder queued for %s.", esc.User), false),
	)
	if err != nil {
		slog.Warn("schedule_call ack failed", "escalation_id", esc.ID, "error", err)
	}
	n.recordAudit(ctx, esc, "schedule_requested", agentID, "")
}

func (n *Notifier) handleMarkResolved(ctx context.Context, esc escalation.Escalation, agentID string) {
	updated, err := n.store.Transition(esc.ID, escalation.StatusResolved, agentID)
	if errors.Is(err, escalation.ErrInvalidTransition) {
		slog.Debug("mark_resolved already applied", "escalation_id", esc.ID)
		return
	}
	if err != nil {
		slog.Error("mark_resolved failed", "escalation_id", esc.ID, "error", err)
		return
	}

	n.bus.PublishOutbound(bus.OutboundMessage{
		User:      updated.User,
		Text:      responder.ConversationResolved(n.userLanguage(ctx, updated.User)),
		Type:      bus.TypeAdmin,
		Timestamp: time.Now(),
	})
	n.recordAudit(ctx, updated, "resolved", agentID, "")
	slog.Info("escalation resolved", "escalation_id", esc.ID, "agent", agentID)
}

func (n *Notifier) renderNotice(ctx context.Context, esc escalation.Escalation) {
	if esc.ThreadRef == "" {
		return
	}
	_, _, _, err := n.api.UpdateMessageContext(ctx, n.channelID, esc.ThreadRef,
		slack.MsgOptionBlocks(noticeBlocks(esc)...),
		slack.MsgOptionText(noticeFallback(esc), false),
	)
	if err != nil {
		slog.Warn("notice re-render failed", "escalation_id", esc.ID, "error", err)
	}
}

// SetFollowUps binds the reminder scheduler. The scheduler's delivery
// callback points back at DeliverReminder, so binding happens after both
// sides are constructed.
func (n *Notifier) SetFollowUps(s FollowUpScheduler) { n.followups = s }

// SetEmailer binds the optional escalation email alerter.
func (n *Notifier) SetEmailer(e EscalationEmailer) { n.emailer = e }

// DeliverReminder posts a call-back reminder into the escalation's thread.
// Escalations that have vanished are dropped without error.
func (n *Notifier) DeliverReminder(ctx context.Context, escalationID, agentID string) error {
	esc, err := n.store.FindByEscalationID(escalationID)
	if err != nil {
		slog.Debug("reminder for unknown escalation, dropping", "escalation_id", escalationID)
		return nil
	}
	_, _, err = n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionTS(esc.ThreadRef),
		slack.MsgOptionText(fmt.Sprintf("📞 Reminder for <@%s>: call back %s.", agentID, esc.User), false),
	)
	if err != nil {
		return fmt.Errorf("post reminder: %w", err)
	}
	return nil
}

func (n *Notifier) userLanguage(ctx context.Context, user identity.UserRef) string {
	if n.users == nil {
		return "en"
	}
	lang, err := n.users.PreferredLanguage(ctx, user)
	if err != nil {
		return "en"
	}
	return lang
}

// agentName resolves the agent's display name, falling back to the generic
// label when the lookup fails.
func (n *Notifier) agentName(ctx context.Context, agentID string) string {
	user, err := n.api.GetUserInfoContext(ctx, agentID)
	if err != nil || user == nil {
		return "Support Agent"
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	if user.RealName != "" {
		return user.RealName
	}
	return "Support Agent"
}

func (n *Notifier) recordAudit(ctx context.Context, esc escalation.Escalation, event, agent, detail string) {
	if n.audit == nil {
		return
	}
	err := n.audit.Record(ctx, store.AuditEntry{
		EscalationID: esc.ID,
		User:         esc.User,
		Event:        event,
		Agent:        agent,
		Detail:       detail,
		At:           time.Now(),
	})
	if err != nil {
		slog.Warn("audit record failed", "escalation_id", esc.ID, "event", event, "error", err)
	}
}
