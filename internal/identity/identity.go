// Package identity defines the canonical user identity carried through the
// core. External channel IDs (session user IDs, phone numbers, workspace
// member IDs) are converted into a typed UserRef exactly once at the gateway
// boundary; the prefix string form exists only at the edges (persistence,
// wire payloads).
package identity

import (
	"fmt"
	"strings"
)

// Channel is the external surface a user communicates through.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelMobile    Channel = "mobile"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelWorkspace Channel = "workspace"
)

// Valid reports whether c is a known channel tag.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelMobile, ChannelWhatsApp, ChannelWorkspace:
		return true
	}
	return false
}

// UserRef identifies one user on one channel.
type UserRef struct {
	Channel Channel
	RawID   string
}

// String renders the channel-prefixed form used in persistence and wire
// payloads, e.g. "whatsapp_15551234567".
func (u UserRef) String() string {
	return fmt.Sprintf("%s_%s", u.Channel, u.RawID)
}

// IsZero reports whether u is the empty reference.
func (u UserRef) IsZero() bool { return u.RawID == "" }

// Parse converts a channel-prefixed user ID back into a UserRef.
// Unprefixed IDs are treated as web users, matching the historical
// convention for session-authenticated clients.
func Parse(userID string) UserRef {
	for _, c := range []Channel{ChannelWhatsApp, ChannelWorkspace, ChannelMobile, ChannelWeb} {
		prefix := string(c) + "_"
		if strings.HasPrefix(userID, prefix) {
			return UserRef{Channel: c, RawID: userID[len(prefix):]}
		}
	}
	return UserRef{Channel: ChannelWeb, RawID: userID}
}
