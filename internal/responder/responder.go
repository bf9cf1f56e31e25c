// Package responder generates bot replies and runs sentiment and language
// analysis. Two implementations exist: an OpenAI-compatible HTTP client and
// a deterministic static responder used when no API key is configured.
package responder

import "context"

// Context carries per-message hints into generation.
type Context struct {
	Language  string
	Sentiment string
	UserName  string
}

// Responder produces bot replies and classifies user messages.
type Responder interface {
	// Generate returns a reply to the user's message.
	Generate(ctx context.Context, message string, rc Context) (string, error)
	// AnalyzeSentiment classifies text as "positive", "negative", or
	// "neutral". Implementations return "neutral" on any failure.
	AnalyzeSentiment(ctx context.Context, text string) string
	// DetectLanguage returns "en" or "es", defaulting to "en".
	DetectLanguage(ctx context.Context, text string) string
}
