// Package sns maps URLs to the social platform they belong to.
package sns

import (
	"net/url"
	"strings"

	"github.com/lotas/readlater/internal/types"
)

type platform struct {
	types.Platform
	domains []string
}

// Table order matters: the first platform whose domain is a substring of the
// hostname wins.
var platforms = []platform{
	{types.Platform{Name: "TikTok", Icon: "🎵", Color: "#000000"}, []string{"tiktok.com"}},
	{types.Platform{Name: "X", Icon: "𝕏", Color: "#000000"}, []string{"x.com", "twitter.com", "t.co"}},
	{types.Platform{Name: "Instagram", Icon: "📷", Color: "#E4405F"}, []string{"instagram.com"}},
	{types.Platform{Name: "YouTube", Icon: "▶️", Color: "#FF0000"}, []string{"youtube.com", "youtu.be"}},
	{types.Platform{Name: "GitHub", Icon: "🐙", Color: "#181717"}, []string{"github.com"}},
	{types.Platform{Name: "Note", Icon: "📝", Color: "#41C9B4"}, []string{"note.com"}},
	{types.Platform{Name: "Medium", Icon: "Ⓜ️", Color: "#000000"}, []string{"medium.com"}},
	{types.Platform{Name: "Qiita", Icon: "📚", Color: "#55C500"}, []string{"qiita.com"}},
	{types.Platform{Name: "Zenn", Icon: "⚡", Color: "#3EA8FF"}, []string{"zenn.dev"}},
}

// Other is the bucket for pages whose platform is unknown.
var Other = types.Platform{Name: "その他", Icon: "🔗", Color: "#475569"}

// Classify returns the platform for rawURL, or nil when the URL is empty,
// malformed, or on no known platform.
func Classify(rawURL string) *types.Platform {
	host := Hostname(rawURL)
	if host == "" {
		return nil
	}
	for _, p := range platforms {
		for _, d := range p.domains {
			if strings.Contains(host, d) {
				out := p.Platform
				return &out
			}
		}
	}
	return nil
}

// Lookup returns the table entry with the given name, or Other.
func Lookup(name string) types.Platform {
	for _, p := range platforms {
		if p.Name == name {
			return p.Platform
		}
	}
	return Other
}

// Names lists the known platform names in table order.
func Names() []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = p.Name
	}
	return out
}

// Hostname returns the lower-cased hostname of an absolute URL, or "" when
// rawURL has no scheme or host.
func Hostname(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
