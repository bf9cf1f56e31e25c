package channels

import "github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"

// FormatWhatsApp renders an outbound message for WhatsApp delivery:
// sentiment emoji prefix plus an escalation notice when the conversation
// has been handed to an agent. Web and mobile clients render raw text, so
// only WhatsApp needs server-side formatting.
func FormatWhatsApp(msg bus.OutboundMessage) string {
	formatted := msg.Text

	switch msg.Sentiment {
	case "positive":
		formatted = "😊 " + formatted
	case "negative":
		formatted = "😔 " + formatted
	}

	if msg.Escalated {
		formatted += "\n\n🚨 *This conversation has been escalated to a human agent.*"
	}

	return formatted
}
