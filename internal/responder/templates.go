package responder

// Canned bilingual replies used by the message pipeline. Keyed by language
// code; unknown languages fall back to English.

var escalationAck = map[string]string{
	"en": "I understand your situation. I'm connecting you with a human agent who can better assist you. Please wait a moment.",
	"es": "Entiendo tu situación. Te estoy conectando con un agente humano que podrá ayudarte mejor. Por favor, espera un momento.",
}

var forwardAck = map[string]string{
	"en": "Your message has been sent to the support agent. They will respond shortly.",
	"es": "Tu mensaje ha sido enviado al agente de soporte. Te responderá en breve.",
}

var forwardFailed = map[string]string{
	"en": "You are connected to a human agent, but there was an issue sending your message. Please try again.",
	"es": "Estás conectado con un agente humano, pero hubo un problema enviando tu mensaje. Por favor, intenta de nuevo.",
}

var genericError = map[string]string{
	"en": "Sorry, something went wrong. Please try again.",
	"es": "Lo siento, algo salió mal. Por favor, intenta de nuevo.",
}

var voiceAck = map[string]string{
	"en": "Voice message received",
	"es": "Mensaje de voz recibido",
}

var agentJoined = map[string]string{
	"en": "👤 A support agent has joined the conversation and will assist you shortly.",
	"es": "👤 Un agente de soporte se ha unido a la conversación y te ayudará en breve.",
}

var conversationResolved = map[string]string{
	"en": "✅ Your conversation has been marked as resolved. Feel free to reach out if you need anything else!",
	"es": "✅ Tu conversación ha sido marcada como resuelta. ¡No dudes en contactarnos si necesitas algo más!",
}

func fromTemplate(tmpl map[string]string, language string) string {
	if text, ok := tmpl[language]; ok {
		return text
	}
	return tmpl["en"]
}

// EscalationAck is the reply sent when a conversation is escalated.
func EscalationAck(language string) string { return fromTemplate(escalationAck, language) }

// ForwardAck is the reply sent after forwarding a message to an agent thread.
func ForwardAck(language string) string { return fromTemplate(forwardAck, language) }

// ForwardFailed is the reply sent when forwarding to the agent thread fails.
func ForwardFailed(language string) string { return fromTemplate(forwardFailed, language) }

// GenericError is the fallback reply when response generation fails.
func GenericError(language string) string { return fromTemplate(genericError, language) }

// VoiceAck acknowledges receipt of a voice message.
func VoiceAck(language string) string { return fromTemplate(voiceAck, language) }

// AgentJoined announces an agent taking over the conversation.
func AgentJoined(language string) string { return fromTemplate(agentJoined, language) }

// ConversationResolved announces the conversation being closed by an agent.
func ConversationResolved(language string) string { return fromTemplate(conversationResolved, language) }
