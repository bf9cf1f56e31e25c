package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
)

// OnAgentReply relays an agent's thread reply back to the escalated user.
// messageTS is the reply's own timestamp, used for the delivery reaction.
// Replies in threads that map to no open escalation are dropped silently:
// agents chat in plenty of threads that are not escalations, and resolved
// conversations must not receive late messages.
func (n *Notifier) OnAgentReply(ctx context.Context, threadRef, messageTS, text, agentUserID string) {
	esc, err := n.store.FindByThread(threadRef)
	if err != nil {
		slog.Debug("thread reply outside escalation, ignoring", "thread", threadRef)
		return
	}
	if !esc.Open() {
		slog.Debug("thread reply on resolved escalation, ignoring",
			"escalation_id", esc.ID, "thread", threadRef)
		return
	}

	name := n.agentName(ctx, agentUserID)
	n.bus.PublishOutbound(bus.OutboundMessage{
		User:       esc.User,
		Text:       fmt.Sprintf("%s: %s", name, text),
		Type:       bus.TypeAdmin,
		SenderName: name,
		Timestamp:  time.Now(),
	})

	// Best effort: mark the reply as seen so the agent knows it went out.
	if messageTS != "" {
		if err := n.api.AddReactionContext(ctx, "eyes", slack.ItemRef{
			Channel:   n.channelID,
			Timestamp: messageTS,
		}); err != nil {
			slog.Debug("reply ack reaction failed", "error", err)
		}
	}

	slog.Info("agent reply relayed", "escalation_id", esc.ID, "user", esc.User, "agent", agentUserID)
}
