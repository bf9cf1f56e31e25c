package channels

import (
	"strings"
	"testing"
)

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"trims whitespace", "  hello  ", 0, "hello"},
		{"strips angle brackets", "<script>alert(1)</script>", 0, "scriptalert(1)/script"},
		{"caps length", strings.Repeat("a", 1500), 0, strings.Repeat("a", 1000)},
		{"custom limit", "abcdef", 3, "abc"},
		{"empty stays empty", "   ", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeMessage(tt.in, tt.limit); got != tt.want {
				t.Errorf("SanitizeMessage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
