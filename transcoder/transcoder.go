// Package transcoder wraps the external ffmpeg process used for
// post-processing fetched media into its final container.
package transcoder

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultBin is the transcoder binary looked up in PATH.
	DefaultBin = "ffmpeg"

	// DefaultKillGrace mirrors the extractor's kill grace period.
	DefaultKillGrace = 3 * time.Second

	// mp3Quality is the VBR quality passed to libmp3lame; 2 is
	// roughly 190 kbit/s, matching what the original tool chain
	// produced.
	mp3Quality = "2"
)

// Transcoder invokes the external transcode process.
type Transcoder struct {
	Bin       string
	KillGrace time.Duration
	Log       *log.Logger
}

// New returns a Transcoder with the default binary.
func New(logger *log.Logger) *Transcoder {
	return &Transcoder{Bin: DefaultBin, KillGrace: DefaultKillGrace, Log: logger}
}

// ToMP3 converts the media at src into an MP3 file at dst. The process
// contract is exit code 0 plus an existing output file on success.
func (t *Transcoder) ToMP3(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, t.Bin,
		"-nostdin",
		"-y",
		"-i", src,
		"-vn",
		"-codec:a", "libmp3lame",
		"-q:a", mp3Quality,
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = t.KillGrace

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "transcode failed: "+stderrTail(stderr.String()))
	}
	return nil
}

func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
