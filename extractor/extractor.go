// Package extractor drives the external yt-dlp binary, in metadata-only
// probe mode and in download mode with a parsed progress stream.
//
// The tool is treated as an opaque subprocess: we own the invocation
// arguments, the progress remapping and the failure classification;
// the tool's own retry heuristics are disabled in favor of the
// orchestrator's single-retry policy.
package extractor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/identity"
	"github.com/mediagrab/mediagrab/job"
)

const (
	// DefaultBin is the extractor binary looked up in PATH.
	DefaultBin = "yt-dlp"

	// DefaultProbeTimeout bounds a metadata-only run.
	DefaultProbeTimeout = 25 * time.Second

	// DefaultKillGrace is how long a signalled process gets to exit
	// before it is killed.
	DefaultKillGrace = 3 * time.Second

	// minHeight is the smallest video height offered to callers.
	minHeight = 144
)

// Extractor invokes the external extractor tool.
type Extractor struct {
	Bin          string
	ProbeTimeout time.Duration
	KillGrace    time.Duration
	Log          *log.Logger
}

// New returns an Extractor with default binary and timeouts.
func New(logger *log.Logger) *Extractor {
	return &Extractor{
		Bin:          DefaultBin,
		ProbeTimeout: DefaultProbeTimeout,
		KillGrace:    DefaultKillGrace,
		Log:          logger,
	}
}

// identityArgs translates id into tool arguments. The returned cleanup
// removes the temporary cookie file, if one was written.
func identityArgs(id identity.Identity) ([]string, func(), error) {
	args := []string{}
	cleanup := func() {}

	if id.UserAgent != "" {
		args = append(args, "--user-agent", id.UserAgent)
	}
	if id.ClientHint != "" {
		args = append(args, "--extractor-args", id.ClientHint)
	}
	if id.CookieBlob != "" {
		f, err := os.CreateTemp("", "mediagrab-cookies-")
		if err != nil {
			return nil, nil, errors.Wrap(err, "writing cookie file")
		}
		if _, err = f.WriteString(id.CookieBlob); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, nil, errors.Wrap(err, "writing cookie file")
		}
		if err = f.Close(); err != nil {
			os.Remove(f.Name())
			return nil, nil, errors.Wrap(err, "writing cookie file")
		}
		args = append(args, "--cookies", f.Name())
		cleanup = func() { os.Remove(f.Name()) }
	}

	return args, cleanup, nil
}

// Probe runs the tool in metadata-only mode and returns the available
// formats for rawurl. It never downloads media and is never retried.
func (e *Extractor) Probe(ctx context.Context, rawurl string, id identity.Identity) (*job.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.ProbeTimeout)
	defer cancel()

	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "20",
		"--retries", "0",
	}
	idArgs, cleanup, err := identityArgs(id)
	if err != nil {
		return nil, &Error{Kind: job.ErrToolInvocation, err: err}
	}
	defer cleanup()
	args = append(args, idArgs...)
	args = append(args, rawurl)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = e.KillGrace

	if err := cmd.Run(); err != nil {
		return nil, classify(ctx, phaseProbe, err, stderr.String())
	}

	var m metadata
	if err := json.Unmarshal(stdout.Bytes(), &m); err != nil {
		return nil, &Error{
			Kind: job.ErrToolInvocation,
			err:  errors.Wrap(err, "parsing extractor metadata"),
		}
	}

	return buildProbeResult(&m), nil
}

// metadata is the subset of the tool's JSON output we care about.
type metadata struct {
	Title     string  `json:"title"`
	Uploader  string  `json:"uploader"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
	Formats   []struct {
		FormatID       string  `json:"format_id"`
		Ext            string  `json:"ext"`
		Vcodec         string  `json:"vcodec"`
		Acodec         string  `json:"acodec"`
		Height         int     `json:"height"`
		Filesize       int64   `json:"filesize"`
		FilesizeApprox float64 `json:"filesize_approx"`
	} `json:"formats"`
}

// buildProbeResult turns raw tool metadata into the format options we
// offer: one best-audio MP3 entry plus video options deduplicated by
// height in descending quality order, falling back to a single
// best-quality entry when the tool reports no usable heights.
func buildProbeResult(m *metadata) *job.ProbeResult {
	res := &job.ProbeResult{
		Title:     m.Title,
		Uploader:  m.Uploader,
		Thumbnail: m.Thumbnail,
		Duration:  int(m.Duration),
	}

	res.Formats = append(res.Formats, job.Format{
		ID:        "audio_mp3",
		Label:     "Audio MP3 (best quality)",
		Container: "mp3",
		HasAudio:  true,
	})

	seen := make(map[int]bool)
	var heights []int
	sizes := make(map[int]int64)
	audio := make(map[int]bool)
	for _, f := range m.Formats {
		if f.Vcodec == "none" || f.Height < minHeight {
			continue
		}
		if !seen[f.Height] {
			seen[f.Height] = true
			heights = append(heights, f.Height)
		}
		size := f.Filesize
		if size == 0 {
			size = int64(f.FilesizeApprox)
		}
		if size > sizes[f.Height] {
			sizes[f.Height] = size
		}
		if f.Acodec != "" && f.Acodec != "none" {
			audio[f.Height] = true
		}
	}
	for i := 0; i < len(heights); i++ {
		for k := i + 1; k < len(heights); k++ {
			if heights[k] > heights[i] {
				heights[i], heights[k] = heights[k], heights[i]
			}
		}
	}

	for _, h := range heights {
		res.Formats = append(res.Formats, job.Format{
			ID:              fmt.Sprintf("video_%dp", h),
			Label:           qualityLabel(h),
			Container:       "mp4",
			HasAudio:        true, // merged with best audio on download
			HasVideo:        true,
			ApproxSizeBytes: sizes[h],
			Height:          h,
		})
	}

	if len(res.Formats) == 1 {
		res.Formats = append(res.Formats, job.Format{
			ID:        "video_best",
			Label:     "Video (best available) MP4",
			Container: "mp4",
			HasAudio:  true,
			HasVideo:  true,
		})
	}

	return res
}

func qualityLabel(height int) string {
	switch {
	case height >= 2160:
		return fmt.Sprintf("Video %dp (4K) MP4", height)
	case height >= 1440:
		return fmt.Sprintf("Video %dp (2K) MP4", height)
	case height >= 1080:
		return fmt.Sprintf("Video %dp (Full HD) MP4", height)
	case height >= 720:
		return fmt.Sprintf("Video %dp (HD) MP4", height)
	default:
		return fmt.Sprintf("Video %dp MP4", height)
	}
}

// DownloadRequest describes one download-mode invocation.
type DownloadRequest struct {
	URL        string
	FormatID   string
	OutputPath string
	Identity   identity.Identity
}

// formatSelector maps our format tokens onto the tool's selector
// language, mirroring the fallback chains the tool documents for
// merged mp4 output. twoStage reports whether separate video and audio
// fetches (and a merge) are expected.
func formatSelector(formatID string) (selector string, twoStage, mergeMP4 bool) {
	if strings.HasPrefix(formatID, "audio_") {
		return "bestaudio/best", false, false
	}

	if h, ok := strings.CutPrefix(formatID, "video_"); ok && strings.HasSuffix(h, "p") {
		if height, err := strconv.Atoi(strings.TrimSuffix(h, "p")); err == nil {
			sel := fmt.Sprintf(
				"bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/"+
					"bestvideo[height<=%d]+bestaudio/"+
					"best[height<=%d]/best",
				height, height, height)
			return sel, true, true
		}
	}

	return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", true, true
}

// StartDownload launches the tool in download mode. The returned
// Process exposes the remapped progress stream; the caller must drain
// Updates and then call Wait exactly once.
func (e *Extractor) StartDownload(ctx context.Context, req DownloadRequest) (*Process, error) {
	selector, twoStage, mergeMP4 := formatSelector(req.FormatID)

	args := []string{
		"-f", selector,
		"-o", req.OutputPath,
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "30",
		"--retries", "0",
		"--fragment-retries", "3",
	}
	if mergeMP4 {
		args = append(args, "--merge-output-format", "mp4")
	}
	idArgs, cleanup, err := identityArgs(req.Identity)
	if err != nil {
		return nil, &Error{Kind: job.ErrToolInvocation, err: err}
	}
	args = append(args, idArgs...)
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = e.KillGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanup()
		return nil, &Error{Kind: job.ErrToolInvocation, err: errors.Wrap(err, "extractor stdout")}
	}

	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, &Error{Kind: job.ErrToolInvocation, err: errors.Wrap(err, "starting extractor")}
	}

	p := &Process{
		ctx:     ctx,
		cmd:     cmd,
		stderr:  &stderr,
		cleanup: cleanup,
		updates: make(chan Update, 64),
		drained: make(chan struct{}),
	}

	go func() {
		defer close(p.updates)
		defer close(p.drained)
		parser := NewProgressParser(twoStage)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if u, ok := parser.Parse(scanner.Text()); ok {
				select {
				case p.updates <- u:
				default:
					// Slow consumer; drop the sample rather
					// than stall the pipe.
				}
			}
		}
	}()

	return p, nil
}

// Process is a running download-mode invocation.
type Process struct {
	ctx     context.Context
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	cleanup func()
	updates chan Update
	drained chan struct{}
}

// Updates returns the remapped progress stream. The channel is closed
// when the tool's output ends.
func (p *Process) Updates() <-chan Update {
	return p.updates
}

// Wait reaps the process and classifies its outcome. It blocks until
// the progress stream has ended.
func (p *Process) Wait() error {
	<-p.drained
	err := p.cmd.Wait()
	p.cleanup()
	if err != nil {
		return classify(p.ctx, phaseDownload, err, p.stderr.String())
	}
	return nil
}

// Stderr returns what the tool wrote to stderr so far.
func (p *Process) Stderr() string {
	return p.stderr.String()
}
