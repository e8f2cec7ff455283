package identity

import (
	"testing"

	"github.com/mediagrab/mediagrab/platform"
)

func TestPickUserAgentFromPool(t *testing.T) {
	r := New(nil)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := r.Pick(platform.TikTok)
		if id.UserAgent == "" {
			t.Fatal("Picked an empty user agent")
		}
		seen[id.UserAgent] = true
	}
	// 200 draws over a pool this small should hit every entry.
	if len(seen) != PoolSize() {
		t.Errorf("Expected %d distinct user agents, got %d", PoolSize(), len(seen))
	}
}

func TestPickClientHint(t *testing.T) {
	r := New(nil)
	if id := r.Pick(platform.YouTube); id.ClientHint == "" {
		t.Error("Expected a client hint for YouTube")
	}
	if id := r.Pick(platform.Instagram); id.ClientHint != "" {
		t.Errorf("Expected no client hint for Instagram, got %q", id.ClientHint)
	}
}

func TestPickCookies(t *testing.T) {
	blob := "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tfoo\tbar\n"
	r := New(map[platform.Platform]string{platform.YouTube: blob})

	if id := r.Pick(platform.YouTube); id.CookieBlob != blob {
		t.Error("Expected the configured cookie blob for YouTube")
	}
	if id := r.Pick(platform.TikTok); id.CookieBlob != "" {
		t.Error("Expected no cookie blob for TikTok")
	}
}
