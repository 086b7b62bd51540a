package media

import (
	"fmt"
	"strings"

	"go.yhsif.com/immutable"
)

// Platform is an enum type defining the supported social media platforms.
type Platform int

// Platform values.
const (
	_ Platform = iota
	PlatformFacebook
	PlatformTwitter
	PlatformLinkedIn
	PlatformInstagram
	PlatformYouTube
)

// AllPlatforms lists every known Platform.
var AllPlatforms = []Platform{
	PlatformFacebook,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformYouTube,
}

func (p Platform) String() string {
	switch p {
	default:
		return fmt.Sprintf("<UNKNOWN-%d>", p)
	case PlatformFacebook:
		return "facebook"
	case PlatformTwitter:
		return "twitter"
	case PlatformLinkedIn:
		return "linkedin"
	case PlatformInstagram:
		return "instagram"
	case PlatformYouTube:
		return "youtube"
	}
}

// Title returns the human readable name of p.
func (p Platform) Title() string {
	switch p {
	default:
		return p.String()
	case PlatformFacebook:
		return "Facebook"
	case PlatformTwitter:
		return "Twitter/X"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformInstagram:
		return "Instagram"
	case PlatformYouTube:
		return "YouTube"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	switch p {
	default:
		return nil, fmt.Errorf("unknown platform %d", p)

	case PlatformFacebook,
		PlatformTwitter,
		PlatformLinkedIn,
		PlatformInstagram,
		PlatformYouTube:
		return []byte(p.String()), nil
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	default:
		return fmt.Errorf("unknown platform %q", text)

	case "facebook", "fb":
		*p = PlatformFacebook

	case "twitter", "x":
		*p = PlatformTwitter

	case "linkedin":
		*p = PlatformLinkedIn

	case "instagram", "ig":
		*p = PlatformInstagram

	case "youtube", "yt":
		*p = PlatformYouTube
	}
	return nil
}

var hosts = map[Platform]immutable.Set[string]{
	PlatformFacebook:  immutable.SetLiteral("facebook.com", "fb.watch", "fb.com"),
	PlatformTwitter:   immutable.SetLiteral("twitter.com", "x.com"),
	PlatformLinkedIn:  immutable.SetLiteral("linkedin.com", "lnkd.in"),
	PlatformInstagram: immutable.SetLiteral("instagram.com", "instagr.am"),
	PlatformYouTube:   immutable.SetLiteral("youtube.com", "youtu.be"),
}

// Hosts returns the hosts accepted for p, without www. or m. prefixes.
func (p Platform) Hosts() immutable.Set[string] {
	if set, ok := hosts[p]; ok {
		return set
	}
	return immutable.EmptySet[string]()
}

var colors = map[Platform]string{
	PlatformFacebook:  "1877f2",
	PlatformTwitter:   "1da1f2",
	PlatformLinkedIn:  "0a66c2",
	PlatformInstagram: "e1306c",
	PlatformYouTube:   "ff0000",
}

// Color returns the brand color of p in rrggbb form.
func (p Platform) Color() string {
	return colors[p]
}
