// Package platform classifies media URLs into the set of supported
// source platforms.
package platform

import (
	"errors"
	"net/url"
	"strings"
)

// Platform is a supported media source.
type Platform string

const (
	YouTube   Platform = "YouTube"
	Instagram Platform = "Instagram"
	TikTok    Platform = "TikTok"
	Facebook  Platform = "Facebook"
)

var (
	// ErrMalformedURL is returned by Resolve for input that is not a
	// syntactically valid absolute http(s) URL.
	ErrMalformedURL = errors.New("Malformed URL")

	// ErrUnsupported is returned by Resolve when the URL belongs to
	// no supported platform.
	ErrUnsupported = errors.New("Unsupported platform")
)

// The match table is ordered; the first matching entry wins. Hosts are
// matched exactly or as a dot-separated suffix, so "m.youtube.com"
// matches "youtube.com" while "notyoutube.com" does not.
var matchers = []struct {
	platform Platform
	hosts    []string
}{
	{YouTube, []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}},
	{Instagram, []string{"instagram.com", "instagr.am"}},
	{TikTok, []string{"tiktok.com", "vm.tiktok.com"}},
	{Facebook, []string{"facebook.com", "fb.watch", "fb.com"}},
}

// Resolve validates rawurl and returns the platform it belongs to.
// It is a pure function with no side effects.
func Resolve(rawurl string) (Platform, error) {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return "", ErrMalformedURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrMalformedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrMalformedURL
	}

	for _, m := range matchers {
		for _, h := range m.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return m.platform, nil
			}
		}
	}

	return "", ErrUnsupported
}
