package processor

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mediagrab/mediagrab/artifact"
	"github.com/mediagrab/mediagrab/extractor"
	"github.com/mediagrab/mediagrab/identity"
	"github.com/mediagrab/mediagrab/job"
	"github.com/mediagrab/mediagrab/platform"
	"github.com/mediagrab/mediagrab/storage"
	"github.com/mediagrab/mediagrab/transcoder"
)

// The extractor and transcoder are exercised through stub shell
// scripts standing in for yt-dlp and ffmpeg. The stubs honor just
// enough of the argument surface the real tools get: -o/--dump-single-json
// for the extractor, the trailing output path for the transcoder.

const extractorStub = `#!/bin/sh
case "$*" in
  *--dump-single-json*)
    echo '{"title":"a title","formats":[{"format_id":"137","vcodec":"avc1","acodec":"none","height":720}]}'
    exit 0
    ;;
esac
out=""
prev=""
for a in "$@"; do
  [ "$prev" = "-o" ] && out="$a"
  prev="$a"
done
echo "[download] Destination: $out"
echo "[download]  50.0% of 1MiB at 1MiB/s"
echo "[download] 100% of 1MiB in 00:01"
printf '\000\000\000\040ftypisomiso2avc1mp41moovdata' > "$out"
exit 0
`

// blockedOnceStub fails with a bot-check message on its first download
// run and behaves like extractorStub afterwards.
const blockedOnceStub = `#!/bin/sh
marker="$(dirname "$0")/tried"
if [ ! -f "$marker" ]; then
  touch "$marker"
  echo "ERROR: [youtube] x: Sign in to confirm you're not a bot" >&2
  exit 1
fi
out=""
prev=""
for a in "$@"; do
  [ "$prev" = "-o" ] && out="$a"
  prev="$a"
done
echo "[download] Destination: $out"
echo "[download] 100% of 1MiB in 00:01"
printf '\000\000\000\040ftypisomiso2avc1mp41moovdata' > "$out"
exit 0
`

const hangingStub = `#!/bin/sh
echo "[download] Destination: whatever"
echo "[download]  10.0% of 1MiB at 1KiB/s"
sleep 30
exit 0
`

const unavailableStub = `#!/bin/sh
echo "ERROR: [youtube] x: Video unavailable" >&2
exit 1
`

const transcoderStub = `#!/bin/sh
for a in "$@"; do dst="$a"; done
printf 'ID3\003\000\000\000\000\000\000' > "$dst"
printf '\377\373\220\000\000\000\000\000' >> "$dst"
exit 0
`

func writeStub(t *testing.T, name, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestProcessor(t *testing.T, extractorScript string) (*Processor, *storage.Storage) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	store := storage.New()
	artifacts, err := artifact.New(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}

	ext := extractor.New(logger)
	ext.Bin = writeStub(t, "yt-dlp", extractorScript)
	ext.ProbeTimeout = 5 * time.Second
	ext.KillGrace = time.Second

	trans := transcoder.New(logger)
	trans.Bin = writeStub(t, "ffmpeg", transcoderStub)

	p, err := New(store, artifacts, ext, trans, identity.New(nil), nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	return p, store
}

func enqueue(t *testing.T, p *Processor, store *storage.Storage, format string) job.Job {
	t.Helper()
	j, err := store.Create(job.Job{
		URL:             "https://youtube.com/watch?v=x",
		Platform:        platform.YouTube,
		RequestedFormat: format,
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Enqueue(j)
	return j
}

func waitFor(t *testing.T, store *storage.Storage, id string, pred func(job.Job) bool) job.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if pred(j) {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	j, _ := store.Get(id)
	t.Fatalf("Timed out waiting for job condition, last state: %s", j)
	return job.Job{}
}

func settled(j job.Job) bool {
	return j.State == job.StateReady || j.State.Terminal()
}

func TestPerformVideo(t *testing.T) {
	p, store := newTestProcessor(t, extractorStub)

	j := enqueue(t, p, store, "video_720p")
	got := waitFor(t, store, j.ID, settled)

	if got.State != job.StateReady {
		t.Fatalf("Expected Ready, got %s (%s: %s)", got.State, got.ErrorKind, got.ErrorDetail)
	}
	if got.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", got.Progress)
	}
	if got.ArtifactPath != j.Path("mp4") {
		t.Errorf("Unexpected artifact path %q", got.ArtifactPath)
	}
	if !p.Artifacts.Exists(got.ArtifactPath) {
		t.Error("Expected the artifact file to exist")
	}
}

func TestPerformAudioTranscode(t *testing.T) {
	p, store := newTestProcessor(t, extractorStub)

	j := enqueue(t, p, store, "audio_mp3")
	got := waitFor(t, store, j.ID, settled)

	if got.State != job.StateReady {
		t.Fatalf("Expected Ready, got %s (%s: %s)", got.State, got.ErrorKind, got.ErrorDetail)
	}
	if got.ArtifactPath != j.Path("mp3") {
		t.Errorf("Unexpected artifact path %q", got.ArtifactPath)
	}
	if p.Artifacts.Exists(j.Path("src")) {
		t.Error("Expected the intermediate download to be deleted")
	}
}

func TestPerformProbeFallback(t *testing.T) {
	p, store := newTestProcessor(t, extractorStub)

	// No format requested: probe first, then download the default.
	j := enqueue(t, p, store, "")
	got := waitFor(t, store, j.ID, settled)

	if got.State != job.StateReady {
		t.Fatalf("Expected Ready, got %s (%s: %s)", got.State, got.ErrorKind, got.ErrorDetail)
	}
	if got.RequestedFormat != fallbackFormat {
		t.Errorf("Expected fallback format %q, got %q", fallbackFormat, got.RequestedFormat)
	}
}

func TestPerformRetriesOnceWhenBlocked(t *testing.T) {
	p, store := newTestProcessor(t, blockedOnceStub)

	j := enqueue(t, p, store, "video_720p")
	got := waitFor(t, store, j.ID, settled)

	if got.State != job.StateReady {
		t.Fatalf("Expected the retry to succeed, got %s (%s: %s)", got.State, got.ErrorKind, got.ErrorDetail)
	}
}

func TestPerformUnavailable(t *testing.T) {
	p, store := newTestProcessor(t, unavailableStub)

	j := enqueue(t, p, store, "video_720p")
	got := waitFor(t, store, j.ID, settled)

	if got.State != job.StateFailed {
		t.Fatalf("Expected Failed, got %s", got.State)
	}
	if got.ErrorKind != job.ErrContentUnavailable {
		t.Errorf("Expected ContentUnavailable, got %s (%s)", got.ErrorKind, got.ErrorDetail)
	}
}

func TestCancel(t *testing.T) {
	p, store := newTestProcessor(t, hangingStub)

	j := enqueue(t, p, store, "video_720p")
	waitFor(t, store, j.ID, func(j job.Job) bool {
		return j.State == job.StateDownloading
	})

	if err := p.Cancel(j.ID); err != nil {
		t.Fatal(err)
	}
	got := waitFor(t, store, j.ID, settled)
	if got.State != job.StateFailed || got.ErrorKind != job.ErrCancelled {
		t.Errorf("Expected Failed/Cancelled, got %s (%s)", got.State, got.ErrorKind)
	}

	// Cancel is idempotent, also on settled jobs.
	if err := p.Cancel(j.ID); err != nil {
		t.Errorf("Expected idempotent cancel, got %v", err)
	}

	if err := p.Cancel("no-such-id"); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStartShutdownHandshake(t *testing.T) {
	p, _ := newTestProcessor(t, extractorStub)
	p.SweepInterval = 10 * time.Millisecond

	closeCh := make(chan struct{})
	go p.Start(closeCh)

	time.Sleep(50 * time.Millisecond)
	closeCh <- struct{}{}

	select {
	case <-closeCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Processor did not acknowledge shutdown")
	}
}
