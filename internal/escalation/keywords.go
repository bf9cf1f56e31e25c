package escalation

import "strings"

// Distress and agent-request terms per language. Matching is
// case-insensitive substring, so multi-word entries match anywhere in the
// message.
var escalationKeywords = map[string][]string{
	"en": {
		"agent", "human", "representative", "manager", "supervisor",
		"help me", "speak to someone", "talk to person", "real person",
		"customer service", "support", "complaint", "frustrated",
		"angry", "upset", "disappointed", "terrible", "awful",
	},
	"es": {
		"agente", "humano", "representante", "gerente", "supervisor",
		"ayúdame", "hablar con alguien", "persona real", "atención al cliente",
		"soporte", "queja", "frustrado", "enojado", "molesto",
		"decepcionado", "terrible", "horrible",
	},
}

// ContainsEscalationKeyword reports whether text contains any escalation
// keyword for the given language. Unknown languages fall back to English.
func ContainsEscalationKeyword(text, language string) bool {
	keywords, ok := escalationKeywords[language]
	if !ok {
		keywords = escalationKeywords["en"]
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
