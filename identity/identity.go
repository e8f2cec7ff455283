// Package identity supplies randomized client-presentation metadata
// for outbound extractor runs.
//
// Rotation is a best-effort mitigation against automated-traffic
// detection, not a correctness guarantee: a blocked platform may block
// every identity in the pool.
package identity

import (
	"math/rand"
	"time"

	"github.com/mediagrab/mediagrab/platform"
)

// Identity is the client-presentation bundle handed to one extractor
// invocation.
type Identity struct {
	// UserAgent is sent with every request the extractor makes.
	UserAgent string

	// ClientHint is an extractor-args value asking the tool to
	// simulate a specific first-party client. Empty when the
	// platform has no useful simulation mode.
	ClientHint string

	// CookieBlob holds session cookies in Netscape cookie-file
	// format. Sourced from configuration only; empty by default.
	CookieBlob string
}

// The pool mixes desktop and mobile variants of current browser UA
// strings. Stale entries are worse than none, so keep this list fresh.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
}

// Per-platform client simulation modes. The android player client is
// known to trip YouTube's bot detection less often than the web one.
var clientHints = map[platform.Platform]string{
	platform.YouTube: "youtube:player_client=android",
}

// Rotator picks identities for extractor runs.
type Rotator struct {
	rng     *rng
	cookies map[platform.Platform]string
}

// New returns a Rotator. cookies maps a platform to an externally
// configured cookie blob and may be nil.
func New(cookies map[platform.Platform]string) *Rotator {
	return &Rotator{
		rng:     newRNG(rand.NewSource(time.Now().UnixNano())),
		cookies: cookies,
	}
}

// Pick returns a uniformly random identity for p.
func (r *Rotator) Pick(p platform.Platform) Identity {
	return Identity{
		UserAgent:  userAgents[r.rng.intn(len(userAgents))],
		ClientHint: clientHints[p],
		CookieBlob: r.cookies[p],
	}
}

// PoolSize returns the number of user agents in the rotation pool.
func PoolSize() int {
	return len(userAgents)
}
