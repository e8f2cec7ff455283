package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediagrab/mediagrab/job"
)

func TestClassifyStderr(t *testing.T) {
	exitErr := errors.New("exit status 1")

	tc := map[string]job.ErrorKind{
		"ERROR: [youtube] x: Sign in to confirm you're not a bot":           job.ErrBlockedByPlatform,
		"ERROR: HTTP Error 429: Too Many Requests":                          job.ErrBlockedByPlatform,
		"ERROR: [youtube] x: Private video. Sign in if you've been granted": job.ErrContentUnavailable,
		"ERROR: [youtube] x: Video unavailable":                             job.ErrContentUnavailable,
		"ERROR: [instagram] x: This post is private":                        job.ErrContentUnavailable,
		"ERROR: Unable to download webpage: <urlopen error timed out>":      job.ErrNetwork,
		"ERROR: Connection reset by peer":                                   job.ErrNetwork,
		"ERROR: something nobody has seen before":                           job.ErrToolInvocation,
	}

	for stderr, want := range tc {
		e := classify(context.Background(), phaseProbe, exitErr, stderr)
		if e.Kind != want {
			t.Errorf("classify(%q) = %s, want %s", stderr, e.Kind, want)
		}
		if e.Detail() == "" {
			t.Errorf("classify(%q): empty detail", stderr)
		}
	}
}

func TestClassifyPhase(t *testing.T) {
	exitErr := errors.New("exit status 1")
	stderr := "ERROR: some unrecognized breakage"

	if e := classify(context.Background(), phaseProbe, exitErr, stderr); e.Kind != job.ErrToolInvocation {
		t.Errorf("Expected ToolInvocationError in probe phase, got %s", e.Kind)
	}
	if e := classify(context.Background(), phaseDownload, exitErr, stderr); e.Kind != job.ErrProcessing {
		t.Errorf("Expected ProcessingError in download phase, got %s", e.Kind)
	}
}

func TestClassifyDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	e := classify(ctx, phaseProbe, errors.New("signal: terminated"), "")
	if e.Kind != job.ErrTimeout {
		t.Errorf("Expected Timeout, got %s", e.Kind)
	}
}

func TestStderrTail(t *testing.T) {
	stderr := "WARNING: something\nERROR: the actual message\n\n"
	if got := stderrTail(stderr); got != "ERROR: the actual message" {
		t.Errorf("Unexpected tail %q", got)
	}
	if got := stderrTail("\n\n"); got != "" {
		t.Errorf("Expected empty tail, got %q", got)
	}
}
