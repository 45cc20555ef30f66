package analyzer

import (
	"net/url"
	"strings"
)

// IsGenericFeed reports whether rawURL points at a platform's home, explore
// or listing view rather than a single item. Such links may be saved repeatedly.
func IsGenericFeed(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	path := strings.TrimRight(strings.ToLower(u.Path), "/")

	switch {
	case onDomain(host, "tiktok.com"):
		if strings.HasPrefix(host, "vm.") || strings.HasPrefix(host, "vt.") {
			return false
		}
		return !strings.Contains(path+"/", "/video/") && !strings.Contains(path+"/", "/photo/")
	case onDomain(host, "x.com"), onDomain(host, "twitter.com"):
		switch path {
		case "", "/home", "/explore", "/notifications", "/i/bookmarks":
			return true
		}
	case onDomain(host, "instagram.com"):
		switch path {
		case "", "/explore", "/reels":
			return true
		}
	case onDomain(host, "youtube.com"):
		return path == "" || path == "/feed" || strings.HasPrefix(path, "/feed/") || path == "/shorts"
	}
	return false
}

// onDomain reports whether host is domain or one of its subdomains.
func onDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
