package profile

import "strings"

// Channel names used as ContactInfo keys.
const (
	ChannelEmail     = "email"
	ChannelPhone     = "phone"
	ChannelWebsite   = "website"
	ChannelGitHub    = "github"
	ChannelTwitter   = "twitter"
	ChannelWhatsApp  = "whatsapp"
	ChannelTelegram  = "telegram"
	ChannelSkype     = "skype"
	ChannelYouTube   = "youtube"
	ChannelFacebook  = "facebook"
	ChannelInstagram = "instagram"
	ChannelLinkedIn  = "linkedin"
	ChannelBirthday  = "birthday"
	ChannelConnected = "connected"
)

// ContactInfo maps a channel name to normalized identifiers. Values found in
// the dedicated contact overlay (pass 1) always precede and are never
// overwritten by values discovered while re-scanning other text fields
// (pass 2).
type ContactInfo map[string][]string

// NewContactInfo returns an empty, ready-to-fill ContactInfo.
func NewContactInfo() ContactInfo {
	return make(ContactInfo)
}

// Add appends value to channel unless an equivalent value is already present.
// Comparison is on the normalized form; the original casing of the first
// occurrence is kept.
func (c ContactInfo) Add(channel, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	norm := normalizeIdentifier(channel, value)
	for _, existing := range c[channel] {
		if normalizeIdentifier(channel, existing) == norm {
			return
		}
	}
	c[channel] = append(c[channel], value)
}

// Merge unions other into c channel by channel. Existing values win on
// conflict; new values are appended in other's order.
func (c ContactInfo) Merge(other ContactInfo) {
	for channel, values := range other {
		for _, v := range values {
			c.Add(channel, v)
		}
	}
}

// Empty reports whether no channel holds any value.
func (c ContactInfo) Empty() bool {
	for _, values := range c {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// normalizeIdentifier produces the comparison form for a channel value.
// Emails and URLs compare case-insensitively; phone numbers compare on
// digits only.
func normalizeIdentifier(channel, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch channel {
	case ChannelPhone, ChannelWhatsApp:
		var digits strings.Builder
		for _, r := range v {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		if digits.Len() > 0 {
			return digits.String()
		}
		return v
	case ChannelWebsite, ChannelGitHub, ChannelTwitter, ChannelYouTube,
		ChannelFacebook, ChannelInstagram, ChannelLinkedIn:
		v = strings.TrimPrefix(v, "https://")
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "www.")
		return strings.TrimRight(v, "/")
	default:
		return v
	}
}
