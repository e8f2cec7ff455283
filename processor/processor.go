// Processor is one of the core entities of mediagrab. It facilitates
// the processing of Jobs.
//
// Each accepted job gets its own goroutine which walks the job through
// its states: an optional metadata probe, the tool-driven download, the
// optional transcode and finally Ready (or Failed). Every state and
// progress mutation goes through the job store, which enforces
// monotonic progress and frozen terminal states.
//
// Cancellation and shutdown are coordinated through the use of contexts
// all along the stack. When a shutdown signal is received from the
// application it propagates from the processor to the running job
// goroutines, stopping any in-progress tool invocations.
//
// A reaper goroutine periodically expires finished jobs past the
// retention window (deleting their artifacts) and acts as a watchdog,
// failing any job whose last update is older than a hard ceiling.
package processor

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mediagrab/mediagrab/artifact"
	"github.com/mediagrab/mediagrab/extractor"
	"github.com/mediagrab/mediagrab/identity"
	"github.com/mediagrab/mediagrab/job"
	"github.com/mediagrab/mediagrab/notifier"
	"github.com/mediagrab/mediagrab/processor/diskcheck"
	"github.com/mediagrab/mediagrab/processor/mimetype"
	"github.com/mediagrab/mediagrab/stats"
	"github.com/mediagrab/mediagrab/storage"
	"github.com/mediagrab/mediagrab/transcoder"
)

var newChecker = diskcheck.New

const (
	// Metric Identifiers
	statsJobs             = "jobs"             // Counter
	statsActiveJobs       = "activeJobs"       // Gauge
	statsFailures         = "failures"         // Counter
	statsCompleted        = "completed"        // Counter
	statsIdentityRetries  = "identityRetries"  // Counter
	statsCancellations    = "cancellations"    // Counter
	statsSweptJobs        = "sweptJobs"        // Counter
	statsWatchdogTimeouts = "watchdogTimeouts" // Counter
	statsOffloads         = "s3Offloads"       // Counter

	// fallbackFormat is used when the caller lets us pick.
	fallbackFormat = "video_best"

	diskInterval = 1 * time.Minute
)

type Processor struct {
	Storage    *storage.Storage
	Artifacts  *artifact.Manager
	Extractor  *extractor.Extractor
	Transcoder *transcoder.Transcoder
	Rotator    *identity.Rotator
	Notifier   *notifier.Notifier

	// Retention is how long finished jobs (and their artifacts) are
	// kept around before the sweep removes them.
	Retention time.Duration

	// HardCeiling is the watchdog limit: an active job with no update
	// for this long is forced to Failed.
	HardCeiling time.Duration

	// SweepInterval is the period of the reaper loop.
	SweepInterval time.Duration

	// Interval between each stats flush
	StatsIntvl time.Duration

	// diskChecker thresholds (%)
	DiskHigh, DiskLow int

	Log *log.Logger

	ctx      context.Context
	shutdown context.CancelFunc
	healthy  atomic.Bool

	// wg tracks the in-flight job goroutines.
	wg sync.WaitGroup

	mu        sync.Mutex
	cancels   map[string]context.CancelFunc
	cancelled map[string]bool

	stats *stats.Stats
}

// New initializes and returns a Processor, or an error if the artifact
// directory is not writable.
func New(store *storage.Storage, artifacts *artifact.Manager, ext *extractor.Extractor,
	trans *transcoder.Transcoder, rotator *identity.Rotator, notif *notifier.Notifier,
	logger *log.Logger) (*Processor, error) {
	// verify we can write to the artifact directory
	tmpf, err := os.CreateTemp(artifacts.Root, "write-check-")
	if err != nil {
		return nil, errors.New("Error verifying artifact directory is writable: " + err.Error())
	}
	_, err = tmpf.Write([]byte("a"))
	if err != nil {
		tmpf.Close()
		os.Remove(tmpf.Name())
		return nil, errors.New("Error verifying artifact directory is writable: " + err.Error())
	}
	err = tmpf.Close()
	if err != nil {
		return nil, errors.New("Error verifying artifact directory is writable: " + err.Error())
	}
	err = os.Remove(tmpf.Name())
	if err != nil {
		return nil, errors.New("Error verifying artifact directory is writable: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		Storage:       store,
		Artifacts:     artifacts,
		Extractor:     ext,
		Transcoder:    trans,
		Rotator:       rotator,
		Notifier:      notif,
		Retention:     10 * time.Minute,
		HardCeiling:   10 * time.Minute,
		SweepInterval: 30 * time.Second,
		StatsIntvl:    5 * time.Second,
		DiskHigh:      90,
		DiskLow:       80,
		Log:           logger,
		ctx:           ctx,
		shutdown:      cancel,
		cancels:       make(map[string]context.CancelFunc),
		cancelled:     make(map[string]bool),
		stats:         stats.New("Processor", time.Second, func(m *expvar.Map) {}),
	}
	p.healthy.Store(true)
	return p, nil
}

// Start starts p. It spawns the helper goroutines (reaper, disk
// checker, stats) and then blocks, toggling admission on disk health
// changes, until a signal arrives on closeCh. It replies on closeCh
// once all in-flight jobs have wound down.
func (p *Processor) Start(closeCh chan struct{}) {
	p.Log.Println("Starting...")

	var helperWg sync.WaitGroup
	helperWg.Add(1)
	go func() {
		defer helperWg.Done()
		p.reaper(p.ctx)
	}()

	p.stats = stats.New("Processor", p.StatsIntvl,
		func(m *expvar.Map) {
			p.Log.Printf("stats: %s", m.String())
		})
	helperWg.Add(1)
	go func() {
		defer helperWg.Done()
		p.stats.Run(p.ctx)
	}()

	var healthCh chan diskcheck.Health
	diskChecker, err := newChecker(p.Artifacts.Root, p.DiskHigh, p.DiskLow, diskInterval)
	if err != nil {
		p.Log.Println("Error initializing disk checker, admission stays open:", err)
	} else {
		healthCh = diskChecker.C()
		helperWg.Add(1)
		go func() {
			defer helperWg.Done()
			diskChecker.Run(p.ctx)
		}()
	}

PROCESSOR_LOOP:
	for {
		select {
		case health := <-healthCh:
			if health == diskcheck.Sick {
				p.Log.Println("Sick disk, pausing new download admissions...")
				p.healthy.Store(false)
			} else {
				p.Log.Println("Healthy disk, resuming new download admissions...")
				p.healthy.Store(true)
			}
		case <-closeCh:
			p.shutdown()
			break PROCESSOR_LOOP
		}
	}

	p.Log.Println("Shutting down...")
	p.wg.Wait()
	helperWg.Wait()
	closeCh <- struct{}{}
}

// Healthy reports whether new downloads may be admitted. It flips to
// false while the artifact disk is above the high watermark.
func (p *Processor) Healthy() bool {
	return p.healthy.Load()
}

// Enqueue spawns the background goroutine that will walk j through its
// lifecycle. The job must already exist in the store.
func (p *Processor) Enqueue(j job.Job) {
	ctx, cancel := context.WithCancel(p.ctx)

	p.mu.Lock()
	p.cancels[j.ID] = cancel
	if p.cancelled[j.ID] {
		// Cancel raced ahead of us.
		cancel()
	}
	p.mu.Unlock()

	p.stats.Add(statsJobs, 1)
	p.stats.Add(statsActiveJobs, 1)
	p.wg.Add(1)
	go p.perform(ctx, j)
}

// Cancel requests cancellation of the job with the given ID. It is
// idempotent and a no-op for finished jobs; unknown IDs return
// storage.ErrNotFound.
func (p *Processor) Cancel(id string) error {
	if _, err := p.Storage.Get(id); err != nil {
		return err
	}

	p.mu.Lock()
	if cancel, ok := p.cancels[id]; ok {
		cancel()
	} else {
		// The job goroutine is not registered yet (or already gone);
		// leave a tombstone so a late Enqueue still honors the cancel.
		p.cancelled[id] = true
	}
	p.mu.Unlock()

	return nil
}

// perform walks j through its lifecycle and updates its state in the
// store accordingly. It retries the download once with a fresh identity
// when the platform blocks us.
func (p *Processor) perform(ctx context.Context, j job.Job) {
	defer p.wg.Done()
	defer p.stats.Add(statsActiveJobs, -1)
	defer func() {
		p.mu.Lock()
		delete(p.cancels, j.ID)
		delete(p.cancelled, j.ID)
		p.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			p.Log.Printf("perform: panic for %s: %v", j, r)
			p.fail(j.ID, job.ErrProcessing, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if ctx.Err() != nil {
		p.fail(j.ID, job.ErrCancelled, "cancelled by user")
		return
	}

	id := p.Rotator.Pick(j.Platform)

	if j.RequestedFormat == "" {
		if _, err := p.Storage.Update(j.ID, func(jj *job.Job) {
			jj.State = job.StateProbing
		}); err != nil {
			p.Log.Printf("perform: Error marking %s as probing: %s", j, err)
			return
		}

		if _, err := p.Extractor.Probe(ctx, j.URL, id); err != nil {
			kind, detail := failureKind(ctx, err)
			p.fail(j.ID, kind, detail)
			return
		}
		j.RequestedFormat = fallbackFormat
		if _, err := p.Storage.Update(j.ID, func(jj *job.Job) {
			jj.RequestedFormat = fallbackFormat
		}); err != nil {
			p.Log.Printf("perform: Error storing fallback format for %s: %s", j, err)
			return
		}
	}

	rel, err := p.attempt(ctx, &j, id)
	if err != nil && blockedByPlatform(err) && ctx.Err() == nil {
		p.Log.Printf("perform: %s blocked by platform, retrying with a fresh identity", j)
		p.stats.Add(statsIdentityRetries, 1)
		rel, err = p.attempt(ctx, &j, p.Rotator.Pick(j.Platform))
	}
	if err != nil {
		kind, detail := failureKind(ctx, err)
		if kind == job.ErrCancelled {
			p.stats.Add(statsCancellations, 1)
		}
		p.fail(j.ID, kind, detail)
		return
	}

	if j.S3Bucket != "" {
		p.offload(j, rel)
		return
	}

	snap, err := p.Storage.Update(j.ID, func(jj *job.Job) {
		jj.State = job.StateReady
		jj.Progress = 100
		jj.ArtifactPath = rel
	})
	if err != nil {
		p.Log.Printf("perform: Error marking %s ready: %s", j, err)
		return
	}
	p.stats.Add(statsCompleted, 1)
	p.Log.Printf("Finished %s", snap)

	// TODO: prefix with the public base URL once config grows one
	p.notify(snap, fmt.Sprintf("/api/result/%s", snap.ID))
}

// attempt runs a single download (and transcode, for audio formats)
// with the given identity and returns the relative artifact path.
func (p *Processor) attempt(ctx context.Context, j *job.Job, id identity.Identity) (string, error) {
	if _, err := p.Storage.Update(j.ID, func(jj *job.Job) {
		jj.State = job.StateDownloading
	}); err != nil {
		return "", err
	}

	dlExt := "mp4"
	if j.AudioOnly() {
		dlExt = "src"
	}
	dlRel := j.Path(dlExt)
	dlAbs, err := p.Artifacts.ReservePath(dlRel)
	if err != nil {
		return "", err
	}

	proc, err := p.Extractor.StartDownload(ctx, extractor.DownloadRequest{
		URL:        j.URL,
		FormatID:   j.RequestedFormat,
		OutputPath: dlAbs,
		Identity:   id,
	})
	if err != nil {
		return "", err
	}

	for u := range proc.Updates() {
		percent := u.Percent
		post := u.Postprocess
		if _, err := p.Storage.Update(j.ID, func(jj *job.Job) {
			jj.Progress = percent
			if post {
				jj.State = job.StateProcessing
			}
		}); err != nil {
			p.Log.Printf("attempt: Error updating progress for %s: %s", j, err)
		}
	}

	if err := proc.Wait(); err != nil {
		p.Artifacts.DeleteIfExists(dlRel)
		return "", err
	}

	rel := dlRel
	if j.AudioOnly() {
		if _, err := p.Storage.Update(j.ID, func(jj *job.Job) {
			jj.State = job.StateProcessing
		}); err != nil {
			return "", err
		}

		rel = j.Path("mp3")
		abs, err := p.Artifacts.ReservePath(rel)
		if err != nil {
			return "", err
		}
		if err := p.Transcoder.ToMP3(ctx, dlAbs, abs); err != nil {
			p.Artifacts.DeleteIfExists(dlRel)
			p.Artifacts.DeleteIfExists(rel)
			return "", err
		}
		p.Artifacts.DeleteIfExists(dlRel)
	}

	if err := p.checkArtifact(j, rel); err != nil {
		p.Artifacts.DeleteIfExists(rel)
		return "", err
	}

	return rel, nil
}

// checkArtifact rejects empty files and files whose detected content
// type does not match the requested format family.
func (p *Processor) checkArtifact(j *job.Job, rel string) error {
	abs := p.Artifacts.Abs(rel)
	fi, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return errors.New("tool produced an empty file")
	}

	validator, err := mimetype.New()
	if err != nil {
		// Validation is a safety net, not a gate; without libmagic we
		// still serve the file.
		p.Log.Println("Error: Could not create mime validator:", err)
		return nil
	}
	defer validator.Close()

	pattern := "video/*,audio/*"
	if j.AudioOnly() {
		pattern = "audio/*"
	}
	return validator.ValidateFile(abs, pattern)
}

// offload uploads the finished artifact of j to the caller-owned S3
// bucket instead of exposing it for a one-time serve.
func (p *Processor) offload(j job.Job, rel string) {
	snap, err := p.Storage.Update(j.ID, func(jj *job.Job) {
		jj.State = job.StateReady
		jj.Progress = 100
		jj.ArtifactPath = rel
	})
	if err != nil {
		p.Log.Printf("offload: Error marking %s ready: %s", j, err)
		return
	}

	dst, err := p.Artifacts.Offload(j.S3Region, j.S3Bucket, j.ID, rel)
	if err != nil {
		p.Log.Printf("offload: Error uploading artifact for %s: %s", j, err)
		p.fail(j.ID, job.ErrProcessing, "s3 upload failed: "+err.Error())
		return
	}

	snap, err = p.Storage.Update(j.ID, func(jj *job.Job) {
		jj.State = job.StateExpired
		jj.ArtifactPath = ""
	})
	if err != nil {
		p.Log.Printf("offload: Error expiring %s: %s", j, err)
		return
	}

	p.stats.Add(statsCompleted, 1)
	p.stats.Add(statsOffloads, 1)
	p.Log.Printf("Offloaded %s to %s", snap, dst)
	p.notify(snap, dst)
}

// fail marks the job Failed with the given error taxonomy entry and
// emits the completion event. Jobs already in a terminal state are left
// untouched.
func (p *Processor) fail(id string, kind job.ErrorKind, detail string) {
	snap, err := p.Storage.Update(id, func(jj *job.Job) {
		jj.State = job.StateFailed
		jj.ErrorKind = kind
		jj.ErrorDetail = detail
	})
	if err != nil {
		p.Log.Printf("fail: Error marking job %s failed: %s", id, err)
		return
	}
	// The watchdog may have beaten us to a terminal state, in which
	// case the update was discarded and its event already sent.
	if snap.State != job.StateFailed || snap.ErrorKind != kind {
		return
	}

	p.stats.Add(statsFailures, 1)
	p.Log.Printf("Failed %s: %s", snap, detail)
	p.notify(snap, "")
}

// notify hands the job's completion event to the notifier, if any.
func (p *Processor) notify(j job.Job, artifactURL string) {
	if p.Notifier == nil {
		return
	}
	p.Notifier.Notify(&j, artifactURL)
}

// blockedByPlatform reports whether err classifies as the platform
// refusing to serve us, the only failure we retry.
func blockedByPlatform(err error) bool {
	var exErr *extractor.Error
	return errors.As(err, &exErr) && exErr.Kind == job.ErrBlockedByPlatform
}

// failureKind maps an attempt error onto the job error taxonomy.
func failureKind(ctx context.Context, err error) (job.ErrorKind, string) {
	if ctx.Err() == context.Canceled {
		return job.ErrCancelled, "cancelled by user"
	}

	var exErr *extractor.Error
	if errors.As(err, &exErr) {
		return exErr.Kind, exErr.Detail()
	}
	return job.ErrProcessing, err.Error()
}

// reaper periodically expires finished jobs past the retention window,
// deleting their artifacts, and acts as the watchdog for stalled jobs.
func (p *Processor) reaper(ctx context.Context) {
	tick := time.NewTicker(p.SweepInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Log.Println("Reaper Exiting... Bye!")
			return
		case <-tick.C:
			swept := p.Storage.SweepExpired(p.Retention, p.cleanupArtifacts)
			if swept > 0 {
				p.Log.Printf("reaper: Swept %d expired jobs", swept)
				p.stats.Add(statsSweptJobs, int64(swept))
			}

			forced := p.Storage.ForceTimeouts(p.HardCeiling, p.onWatchdogTimeout)
			if forced > 0 {
				p.Log.Printf("reaper: Watchdog failed %d stalled jobs", forced)
				p.stats.Add(statsWatchdogTimeouts, int64(forced))
			}
		}
	}
}

// cleanupArtifacts removes whatever files a removed job may have left
// behind.
func (p *Processor) cleanupArtifacts(j job.Job) {
	if j.ArtifactPath != "" {
		if err := p.Artifacts.Remove(j.ID, j.ArtifactPath); err != nil {
			p.Log.Printf("reaper: Error deleting artifact %s for %s: %s", j.ArtifactPath, j, err)
		}
		return
	}
	for _, ext := range []string{"mp4", "mp3", "src"} {
		if err := p.Artifacts.DeleteIfExists(j.Path(ext)); err != nil {
			p.Log.Printf("reaper: Error deleting leftover %s for %s: %s", j.Path(ext), j, err)
		}
	}
}

// onWatchdogTimeout cancels whatever goroutine may still be attached
// to the job and emits the failure event.
func (p *Processor) onWatchdogTimeout(j job.Job) {
	p.mu.Lock()
	if cancel, ok := p.cancels[j.ID]; ok {
		cancel()
	}
	p.mu.Unlock()

	p.stats.Add(statsFailures, 1)
	p.notify(j, "")
}
