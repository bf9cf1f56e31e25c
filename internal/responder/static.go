package responder

import (
	"context"
	"fmt"
	"strings"
)

// StaticResponder is the deterministic fallback used when no API key is
// configured. Replies are keyword-driven and bilingual; sentiment and
// language classification use fixed word lists.
type StaticResponder struct{}

func NewStaticResponder() *StaticResponder { return &StaticResponder{} }

func (s *StaticResponder) Generate(_ context.Context, message string, rc Context) (string, error) {
	lower := strings.ToLower(message)
	es := rc.Language == "es"

	switch {
	case containsAny(lower, "hello", "hi", "hola"):
		if es {
			return greeting("¡Hola%s! Soy tu asistente de IA. ¿Cómo puedo ayudarte hoy?", rc.UserName), nil
		}
		return greeting("Hello%s! I'm your AI assistant. How can I help you today?", rc.UserName), nil
	case containsAny(lower, "frustrated", "angry", "problem"):
		if es {
			return "Entiendo tu frustración. Permíteme ayudarte a resolver este problema. ¿Puedes contarme más detalles?", nil
		}
		return "I understand your frustration. Let me help you resolve this issue. Can you tell me more details?", nil
	case containsAny(lower, "agent", "human", "person"):
		if es {
			return "Te estoy conectando con un agente humano que podrá ayudarte mejor. Por favor, espera un momento.", nil
		}
		return "I'm connecting you with a human agent who can better assist you. Please wait a moment.", nil
	case containsAny(lower, "love", "great", "amazing"):
		if es {
			return "¡Me alegra saber que tienes una experiencia positiva! ¿Hay algo más en lo que pueda ayudarte?", nil
		}
		return "I'm glad to hear you're having a positive experience! Is there anything else I can help you with?", nil
	case containsAny(lower, "help", "ayuda"):
		if es {
			return "Por supuesto, estoy aquí para ayudarte. Puedo responder preguntas, proporcionar información o conectarte con un agente humano si es necesario.", nil
		}
		return "Of course, I'm here to help! I can answer questions, provide information, or connect you with a human agent if needed.", nil
	}

	if es {
		return "Gracias por tu mensaje. Como asistente de IA, estoy aquí para ayudarte. ¿Puedes contarme más sobre lo que necesitas?", nil
	}
	return "Thank you for your message. As an AI assistant, I'm here to help you. Can you tell me more about what you need?", nil
}

func (s *StaticResponder) AnalyzeSentiment(_ context.Context, text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, "love", "great", "amazing", "excellent", "wonderful") {
		return "positive"
	}
	if containsAny(lower, "hate", "terrible", "awful", "frustrated", "angry", "bad") {
		return "negative"
	}
	return "neutral"
}

func (s *StaticResponder) DetectLanguage(_ context.Context, text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, "hola", "gracias", "por favor", "ayuda", "necesito", "problema", "español") {
		return "es"
	}
	return "en"
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func greeting(format, name string) string {
	if name != "" {
		name = " " + name
	}
	return fmt.Sprintf(format, name)
}
