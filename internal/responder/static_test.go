package responder

import (
	"context"
	"strings"
	"testing"
)

func TestStaticSentiment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I love this product, it's amazing", "positive"},
		{"this is terrible and I am frustrated", "negative"},
		{"what are your opening hours", "neutral"},
		{"EXCELLENT service", "positive"},
	}

	s := NewStaticResponder()
	for _, tt := range tests {
		if got := s.AnalyzeSentiment(context.Background(), tt.text); got != tt.want {
			t.Errorf("AnalyzeSentiment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestStaticLanguageDetection(t *testing.T) {
	s := NewStaticResponder()
	if got := s.DetectLanguage(context.Background(), "hola, necesito ayuda"); got != "es" {
		t.Errorf("expected es, got %q", got)
	}
	if got := s.DetectLanguage(context.Background(), "hello there"); got != "en" {
		t.Errorf("expected en, got %q", got)
	}
}

func TestStaticGenerateRespectsLanguage(t *testing.T) {
	s := NewStaticResponder()
	reply, err := s.Generate(context.Background(), "hola", Context{Language: "es"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(reply, "Hola") {
		t.Errorf("expected Spanish greeting, got %q", reply)
	}

	reply, err = s.Generate(context.Background(), "hello", Context{Language: "en", UserName: "Ana"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(reply, "Hello Ana") {
		t.Errorf("expected personalized greeting, got %q", reply)
	}
}

func TestTemplateFallsBackToEnglish(t *testing.T) {
	if got := EscalationAck("fr"); got != escalationAck["en"] {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
	if got := ForwardAck("es"); got != forwardAck["es"] {
		t.Errorf("expected Spanish forward ack, got %q", got)
	}
}
