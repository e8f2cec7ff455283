// Package storage is the in-memory job registry, the single source of
// truth for job state and progress.
//
// Exclusivity is per job, not global: the registry map is guarded by
// one lock, but every mutation of a job's fields happens under that
// job's own lock, so two jobs never serialize against each other and
// no lock is held across a probe or download call.
package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediagrab/mediagrab/job"
	"github.com/mediagrab/mediagrab/platform"
)

// ErrNotFound is returned by Get and Update for unknown job IDs,
// including IDs already removed by the expiry sweep.
var ErrNotFound = errors.New("Not Found")

type entry struct {
	mu  sync.Mutex
	job job.Job
}

// Storage holds all live job records keyed by job ID. IDs are never
// reused; a removed ID stays gone.
type Storage struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	now  func() time.Time
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		jobs: make(map[string]*entry),
		now:  time.Now,
	}
}

// Create registers proto as a new Queued job and returns the stored
// copy. ID, state, progress and timestamps are assigned here; the
// caller provides URL, platform and request options.
func (s *Storage) Create(proto job.Job) (job.Job, error) {
	if proto.URL == "" || proto.Platform == platform.Platform("") {
		return job.Job{}, errors.New("job needs a url and a resolved platform")
	}

	proto.ID = uuid.NewString()
	proto.State = job.StateQueued
	proto.Progress = 0
	proto.CreatedAt = s.now()
	proto.LastUpdatedAt = proto.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[proto.ID]; exists {
		return job.Job{}, errors.New("job ID collision: " + proto.ID)
	}
	s.jobs[proto.ID] = &entry{job: proto}
	return proto, nil
}

// Get returns a snapshot of the job with the given ID.
func (s *Storage) Get(id string) (job.Job, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return job.Job{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// Update applies mutate to the job with the given ID as one atomic
// read-modify-write and returns the resulting snapshot.
//
// Two invariants are enforced here rather than trusted to callers:
// progress is clamped to [0,100] and never regresses, and a job that
// already reached a terminal state is frozen (the mutation is
// discarded and the current snapshot returned).
func (s *Storage) Update(id string, mutate func(*job.Job)) (job.Job, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return job.Job{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.State.Terminal() {
		return e.job, nil
	}

	prevProgress := e.job.Progress
	mutate(&e.job)

	if e.job.Progress < prevProgress {
		e.job.Progress = prevProgress
	}
	if e.job.Progress < 0 {
		e.job.Progress = 0
	} else if e.job.Progress > 100 {
		e.job.Progress = 100
	}
	e.job.LastUpdatedAt = s.now()

	return e.job, nil
}

// Len returns the number of live job records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// SweepExpired removes jobs that finished (Ready, Failed or Expired)
// and were last touched before the retention window. Unserved Ready
// jobs are expired as part of the sweep. onRemove runs for every
// removed job before its record is forgotten, so record removal and
// artifact deletion appear as a single operation to observers: once
// Get returns ErrNotFound the file is already gone.
func (s *Storage) SweepExpired(retention time.Duration, onRemove func(job.Job)) int {
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	var victims []*entry
	var ids []string
	for id, e := range s.jobs {
		e.mu.Lock()
		done := e.job.State.Terminal() || e.job.State == job.StateReady
		stale := e.job.LastUpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if done && stale {
			victims = append(victims, e)
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	for _, e := range victims {
		e.mu.Lock()
		if e.job.State == job.StateReady {
			e.job.State = job.StateExpired
		}
		snapshot := e.job
		e.mu.Unlock()
		if onRemove != nil {
			onRemove(snapshot)
		}
	}

	return len(victims)
}

// ForceTimeouts is the watchdog sweep: any job still in an active
// state whose last update is older than ceiling is forced to Failed
// with a Timeout error, so a crashed or stalled background unit can
// never leave a job stuck. Ready jobs are not touched here; the
// retention sweep owns their expiry. onTimeout runs for every forced
// job.
func (s *Storage) ForceTimeouts(ceiling time.Duration, onTimeout func(job.Job)) int {
	cutoff := s.now().Add(-ceiling)

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	forced := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.job.State.Active() && e.job.LastUpdatedAt.Before(cutoff) {
			e.job.State = job.StateFailed
			e.job.ErrorKind = job.ErrTimeout
			e.job.ErrorDetail = "watchdog: no progress past the hard ceiling"
			e.job.LastUpdatedAt = s.now()
			snapshot := e.job
			e.mu.Unlock()
			forced++
			if onTimeout != nil {
				onTimeout(snapshot)
			}
			continue
		}
		e.mu.Unlock()
	}

	return forced
}
