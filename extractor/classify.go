package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/job"
)

// Error is a classified extractor failure.
type Error struct {
	Kind job.ErrorKind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.msg != "" && e.err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.msg, e.err)
	}
	if e.msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// Detail is the human-readable part of the error, without the kind.
func (e *Error) Detail() string {
	if e.msg != "" {
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return string(e.Kind)
}

type phase int

const (
	phaseProbe phase = iota
	phaseDownload
)

// Classification is string matching on the tool's stderr and is
// inherently fragile: the pattern lists below are versioned against
// yt-dlp's message format and must be re-checked on every tool
// upgrade.
var (
	unavailablePatterns = []string{
		"private video",
		"video unavailable",
		"this video is unavailable",
		"has been removed",
		"this post is private",
		"account is private",
		"not available in your country",
		"geo restricted",
		"members-only",
		"requested content is not available",
		"content isn't available",
	}

	blockedPatterns = []string{
		"sign in to confirm you're not a bot",
		"sign in to confirm you’re not a bot",
		"http error 429",
		"too many requests",
		"captcha",
		"confirm you are human",
		"access denied",
		"consider passing --cookies",
	}

	networkPatterns = []string{
		"unable to download webpage",
		"unable to download video data",
		"connection reset",
		"connection refused",
		"connection timed out",
		"timed out",
		"temporary failure in name resolution",
		"getaddrinfo failed",
		"network is unreachable",
	}
)

func matchAny(s string, patterns []string) bool {
	s = strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// classify maps a failed tool invocation to the error taxonomy. The
// probe phase reports tool breakage as ToolInvocationError; the
// download phase reports it as ProcessingError, since by then the tool
// has proven it can run.
func classify(ctx context.Context, ph phase, err error, stderr string) *Error {
	tail := stderrTail(stderr)

	if ctx.Err() == context.DeadlineExceeded {
		return &Error{Kind: job.ErrTimeout, msg: "extractor timed out", err: ctx.Err()}
	}

	switch {
	case matchAny(stderr, blockedPatterns):
		return &Error{Kind: job.ErrBlockedByPlatform, msg: tail, err: err}
	case matchAny(stderr, unavailablePatterns):
		return &Error{Kind: job.ErrContentUnavailable, msg: tail, err: err}
	case matchAny(stderr, networkPatterns):
		return &Error{Kind: job.ErrNetwork, msg: tail, err: err}
	}

	kind := job.ErrToolInvocation
	if ph == phaseDownload {
		kind = job.ErrProcessing
	}
	if tail == "" {
		return &Error{Kind: kind, err: errors.Wrap(err, "extractor")}
	}
	return &Error{Kind: kind, msg: tail, err: err}
}

// stderrTail returns the last non-empty stderr line, which is where
// the tool puts its actual error message.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
