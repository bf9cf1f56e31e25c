package notifier

import (
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/escalation"
)

// Action IDs carried on the notice buttons. The escalation ID rides in the
// button value so the interaction handler can recover it without parsing
// message text.
const (
	ActionTakeOver     = "take_over"
	ActionScheduleCall = "schedule_call"
	ActionMarkResolved = "mark_resolved"
)

// noticeBlocks renders the escalation notice for its current state. The same
// renderer serves both the initial post and every re-render after an agent
// action, so repeated clicks always converge on the same layout.
func noticeBlocks(esc escalation.Escalation) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject("plain_text", "🚨 Chatbot Escalation Alert", false, false),
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*User:* %s", esc.User), false, false),
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Channel:* %s", esc.User.Channel), false, false),
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Time:* %s", esc.CreatedAt.Format(time.RFC1123)), false, false),
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Status:* %s", statusLabel(esc)), false, false),
		}, nil),
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Original Message:*\n>%s", esc.OriginalMessage), false, false),
			nil, nil,
		),
	}

	if buttons := noticeButtons(esc); len(buttons) > 0 {
		blocks = append(blocks, slack.NewActionBlock("escalation_actions", buttons...))
	}
	return blocks
}

// noticeButtons returns the action buttons valid for the escalation's state.
// Resolved notices carry no buttons.
func noticeButtons(esc escalation.Escalation) []slack.BlockElement {
	if esc.Status == escalation.StatusResolved {
		return nil
	}

	var buttons []slack.BlockElement
	if esc.Status == escalation.StatusActive {
		takeOver := slack.NewButtonBlockElement(ActionTakeOver, esc.ID,
			slack.NewTextBlockObject("plain_text", "✅ Take Over", false, false))
		takeOver.Style = slack.StylePrimary
		buttons = append(buttons, takeOver)
	}
	buttons = append(buttons,
		slack.NewButtonBlockElement(ActionScheduleCall, esc.ID,
			slack.NewTextBlockObject("plain_text", "📞 Schedule Call", false, false)),
	)
	resolve := slack.NewButtonBlockElement(ActionMarkResolved, esc.ID,
		slack.NewTextBlockObject("plain_text", "✔️ Mark Resolved", false, false))
	resolve.Style = slack.StyleDanger
	buttons = append(buttons, resolve)
	return buttons
}

func statusLabel(esc escalation.Escalation) string {
	switch esc.Status {
	case escalation.StatusActive:
		return "🔴 Waiting for agent"
	case escalation.StatusTakenOver:
		if esc.Agent != "" {
			return fmt.Sprintf("🟡 Handled by <@%s>", esc.Agent)
		}
		return "🟡 Taken over"
	case escalation.StatusResolved:
		if esc.Agent != "" {
			return fmt.Sprintf("🟢 Resolved by <@%s>", esc.Agent)
		}
		return "🟢 Resolved"
	}
	return string(esc.Status)
}

// noticeFallback is the plain-text notification fallback for the notice.
func noticeFallback(esc escalation.Escalation) string {
	return fmt.Sprintf("Escalation from %s: %s", esc.User, esc.OriginalMessage)
}
