package escalation

import (
	"testing"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

func TestDecideScenarios(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		language  string
		sentiment string
		want      Action
	}{
		{"human request keyword", "I want to speak to a human", "en", SentimentNeutral, ActionEscalate},
		{"negative sentiment without keywords", "this is fine", "en", SentimentNegative, ActionEscalate},
		{"plain greeting passes through", "hello, how are you", "en", SentimentPositive, ActionAutoReply},
		{"spanish keyword", "quiero hablar con un agente", "es", SentimentNeutral, ActionEscalate},
		{"spanish plain message", "¿cuál es mi saldo?", "es", SentimentNeutral, ActionAutoReply},
		{"keyword is case-insensitive", "GET ME A MANAGER", "en", SentimentNeutral, ActionEscalate},
		{"unknown language falls back to english", "I need an agent", "fr", SentimentNeutral, ActionEscalate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(NewStore())
			user := identity.UserRef{Channel: identity.ChannelWeb, RawID: "u1"}
			got := engine.Decide(user, tt.text, tt.language, tt.sentiment)
			if got.Action != tt.want {
				t.Errorf("Decide(%q) = %s, want %s", tt.text, got.Action, tt.want)
			}
		})
	}
}

// Once a user has an open escalation, every subsequent message forwards to
// the agent regardless of content, until resolution.
func TestDecideStickyRouting(t *testing.T) {
	store := NewStore()
	engine := NewEngine(store)
	user := identity.UserRef{Channel: identity.ChannelWhatsApp, RawID: "15551234567"}

	esc, err := store.Create(user, "I need a human")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	messages := []struct {
		text      string
		sentiment string
	}{
		{"hello, how are you", SentimentPositive}, // would be auto-reply without the handoff
		{"I need an agent", SentimentNeutral},     // would be escalate
		{"thanks", SentimentPositive},
	}
	for _, m := range messages {
		d := engine.Decide(user, m.text, "en", m.sentiment)
		if d.Action != ActionForwardToAgent {
			t.Errorf("Decide(%q) = %s, want forward_to_agent", m.text, d.Action)
		}
		if d.Escalation.ID != esc.ID {
			t.Errorf("Decide(%q) escalation = %s, want %s", m.text, d.Escalation.ID, esc.ID)
		}
	}

	// Still sticky after takeover.
	if _, err := store.Transition(esc.ID, StatusTakenOver, "agent1"); err != nil {
		t.Fatalf("takeover: %v", err)
	}
	if d := engine.Decide(user, "hello", "en", SentimentPositive); d.Action != ActionForwardToAgent {
		t.Errorf("after takeover: %s, want forward_to_agent", d.Action)
	}

	// Resolution ends stickiness.
	if _, err := store.Transition(esc.ID, StatusResolved, "agent1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d := engine.Decide(user, "hello, how are you", "en", SentimentPositive); d.Action != ActionAutoReply {
		t.Errorf("after resolve: %s, want auto_reply", d.Action)
	}
}

func TestContainsEscalationKeyword(t *testing.T) {
	if ContainsEscalationKeyword("everything is great", "en") {
		t.Error("false positive on clean text")
	}
	if !ContainsEscalationKeyword("necesito soporte ahora", "es") {
		t.Error("missed spanish keyword")
	}
}
