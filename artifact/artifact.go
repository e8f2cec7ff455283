// Package artifact owns the on-disk lifetime of finished downloads:
// path reservation, the one-time serve, and guaranteed deletion.
package artifact

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mediagrab/mediagrab/artifact/filestorage"
)

var (
	// ErrAlreadyServed is returned by OpenServe once an artifact's
	// one-time serve happened or is in flight.
	ErrAlreadyServed = errors.New("artifact already served")

	// ErrMissing is returned by OpenServe when the artifact file is
	// gone, typically after a sweep.
	ErrMissing = errors.New("artifact file missing")
)

// Manager tracks serve and deletion state for artifact files. An
// artifact is never deleted while a serve stream is reading it;
// deletion requested during a stream is deferred to the stream's
// Close.
type Manager struct {
	Root string
	Log  *log.Logger

	local *filestorage.FileSystem

	mu       sync.Mutex
	served   map[string]bool   // one-time serve claimed
	inflight map[string]int    // open serve streams per job
	pending  map[string]string // deletions deferred until streams close
}

// New returns a Manager rooted at root, creating the directory if
// needed.
func New(root string, logger *log.Logger) (*Manager, error) {
	local, err := filestorage.NewFileSystem(root)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Root:     root,
		Log:      logger,
		local:    local,
		served:   make(map[string]bool),
		inflight: make(map[string]int),
		pending:  make(map[string]string),
	}, nil
}

// ReservePath ensures the parent directory for rel exists and returns
// the absolute path external processes should write to. Paths derive
// deterministically from the job ID (see job.Path), so they are
// collision free across jobs.
func (m *Manager) ReservePath(rel string) (string, error) {
	abs := filepath.Join(m.Root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), os.FileMode(0755)); err != nil {
		return "", err
	}
	return abs, nil
}

// Abs maps a job-relative artifact path to its absolute location.
func (m *Manager) Abs(rel string) string {
	return filepath.Join(m.Root, rel)
}

// ServeStream is an open one-time serve. The caller must Close it
// exactly once; Close runs any deletion deferred during the stream.
type ServeStream struct {
	*os.File
	Size int64

	m     *Manager
	jobID string
}

// Close releases the stream and performs a deferred deletion, if one
// was requested while the stream was open.
func (s *ServeStream) Close() error {
	err := s.File.Close()

	s.m.mu.Lock()
	s.m.inflight[s.jobID]--
	var rel string
	if s.m.inflight[s.jobID] <= 0 {
		delete(s.m.inflight, s.jobID)
		rel = s.m.pending[s.jobID]
		delete(s.m.pending, s.jobID)
	}
	s.m.mu.Unlock()

	if rel != "" {
		if derr := s.m.local.DeleteFile(rel); derr != nil && s.m.Log != nil {
			s.m.Log.Printf("Error deleting deferred artifact %s: %s", rel, derr)
		}
	}
	return err
}

// OpenServe opens the artifact of jobID for its one-time serve. Only
// one serve may ever be opened per job; concurrent or repeated callers
// get ErrAlreadyServed.
func (m *Manager) OpenServe(jobID, rel string) (*ServeStream, error) {
	m.mu.Lock()
	if m.served[jobID] || m.inflight[jobID] > 0 {
		m.mu.Unlock()
		return nil, ErrAlreadyServed
	}
	m.inflight[jobID]++
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.inflight[jobID]--
		if m.inflight[jobID] <= 0 {
			delete(m.inflight, jobID)
		}
		m.mu.Unlock()
	}

	f, err := os.Open(m.Abs(rel))
	if err != nil {
		release()
		if os.IsNotExist(err) {
			return nil, ErrMissing
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		release()
		return nil, err
	}

	return &ServeStream{File: f, Size: fi.Size(), m: m, jobID: jobID}, nil
}

// MarkServed records the successful one-time serve of jobID. It is
// idempotent; only the first call returns true.
func (m *Manager) MarkServed(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.served[jobID] {
		return false
	}
	m.served[jobID] = true
	return true
}

// Remove deletes the artifact of jobID and forgets its serve state.
// If a serve stream is in flight the file deletion is deferred until
// the stream closes; the call still succeeds.
func (m *Manager) Remove(jobID, rel string) error {
	m.mu.Lock()
	delete(m.served, jobID)
	if m.inflight[jobID] > 0 {
		m.pending[jobID] = rel
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	return m.local.DeleteFile(rel)
}

// DeleteIfExists removes the file at rel, tolerating its absence.
// Used for intermediate files no job record points to.
func (m *Manager) DeleteIfExists(rel string) error {
	return m.local.DeleteFile(rel)
}

// Exists reports whether the artifact file at rel is present.
func (m *Manager) Exists(rel string) bool {
	return m.local.FileExists(rel)
}

// Offload uploads the artifact at rel into the caller-owned bucket and
// removes the local file. It returns the destination URL.
func (m *Manager) Offload(region, bucket, jobID, rel string) (string, error) {
	s3be, err := filestorage.NewAWSS3(region, bucket)
	if err != nil {
		return "", err
	}
	if err := s3be.StoreFile(m.Abs(rel), rel); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.served[jobID] = true
	m.mu.Unlock()

	return fmt.Sprintf("s3://%s/%s", bucket, rel), nil
}
