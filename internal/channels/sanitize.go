package channels

import "strings"

// DefaultMaxMessageChars caps inbound message length when no limit is
// configured.
const DefaultMaxMessageChars = 1000

// SanitizeMessage normalizes raw user input at the channel edge: trims
// whitespace, strips angle brackets, and truncates to maxChars (rune-safe).
func SanitizeMessage(input string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxMessageChars
	}
	cleaned := strings.TrimSpace(input)
	cleaned = strings.NewReplacer("<", "", ">", "").Replace(cleaned)
	if runes := []rune(cleaned); len(runes) > maxChars {
		cleaned = string(runes[:maxChars])
	}
	return cleaned
}
