package identity

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		channel Channel
		rawID   string
	}{
		{"whatsapp", "whatsapp_15551234567", ChannelWhatsApp, "15551234567"},
		{"web", "web_abc123", ChannelWeb, "abc123"},
		{"mobile", "mobile_abc123", ChannelMobile, "abc123"},
		{"workspace", "workspace_U123", ChannelWorkspace, "U123"},
		{"unprefixed defaults to web", "abc123", ChannelWeb, "abc123"},
		{"unknown prefix defaults to web", "telegram_99", ChannelWeb, "telegram_99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.userID)
			if got.Channel != tt.channel || got.RawID != tt.rawID {
				t.Errorf("Parse(%q) = {%s %s}, want {%s %s}",
					tt.userID, got.Channel, got.RawID, tt.channel, tt.rawID)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	refs := []UserRef{
		{ChannelWeb, "u1"},
		{ChannelMobile, "u2"},
		{ChannelWhatsApp, "15551234567"},
		{ChannelWorkspace, "U0AGENT"},
	}
	for _, ref := range refs {
		if got := Parse(ref.String()); got != ref {
			t.Errorf("Parse(%q) = %+v, want %+v", ref.String(), got, ref)
		}
	}
}

func TestChannelValid(t *testing.T) {
	if !ChannelWhatsApp.Valid() {
		t.Error("whatsapp should be valid")
	}
	if Channel("telegram").Valid() {
		t.Error("telegram should not be valid")
	}
}
