package artifact

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(t.TempDir(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func writeArtifact(t *testing.T, m *Manager, rel, content string) {
	t.Helper()
	abs, err := m.ReservePath(rel)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReservePath(t *testing.T) {
	m := newTestManager(t)

	abs, err := m.ReservePath("abc/abc-1.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if abs != filepath.Join(m.Root, "abc/abc-1.mp4") {
		t.Errorf("Unexpected path %q", abs)
	}
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		t.Errorf("Expected parent directory to exist: %s", err)
	}
}

func TestOneTimeServe(t *testing.T) {
	m := newTestManager(t)
	writeArtifact(t, m, "abc/abc-1.mp4", "media bytes")

	stream, err := m.OpenServe("abc-1", "abc/abc-1.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if stream.Size != int64(len("media bytes")) {
		t.Errorf("Unexpected size %d", stream.Size)
	}

	// A concurrent serve of the same artifact must be refused.
	if _, err := m.OpenServe("abc-1", "abc/abc-1.mp4"); !errors.Is(err, ErrAlreadyServed) {
		t.Errorf("Expected ErrAlreadyServed, got %v", err)
	}

	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "media bytes" {
		t.Errorf("Unexpected content %q", got)
	}
	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}

	if !m.MarkServed("abc-1") {
		t.Error("Expected first MarkServed to return true")
	}
	if m.MarkServed("abc-1") {
		t.Error("Expected repeated MarkServed to return false")
	}
	if _, err := m.OpenServe("abc-1", "abc/abc-1.mp4"); !errors.Is(err, ErrAlreadyServed) {
		t.Errorf("Expected ErrAlreadyServed after serve, got %v", err)
	}
}

func TestOpenServeMissing(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.OpenServe("ghost", "gho/ghost.mp4"); !errors.Is(err, ErrMissing) {
		t.Errorf("Expected ErrMissing, got %v", err)
	}

	// The failed open must not leave a stuck inflight claim.
	writeArtifact(t, m, "gho/ghost.mp4", "late arrival")
	if _, err := m.OpenServe("ghost", "gho/ghost.mp4"); err != nil {
		t.Errorf("Expected the retry to succeed, got %v", err)
	}
}

func TestRemoveDeferredWhileStreaming(t *testing.T) {
	m := newTestManager(t)
	writeArtifact(t, m, "abc/abc-2.mp4", "media bytes")

	stream, err := m.OpenServe("abc-2", "abc/abc-2.mp4")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Remove("abc-2", "abc/abc-2.mp4"); err != nil {
		t.Fatal(err)
	}
	// The file survives while the stream is open.
	if !m.Exists("abc/abc-2.mp4") {
		t.Fatal("Expected the artifact to survive an in-flight serve")
	}
	if _, err := io.ReadAll(stream); err != nil {
		t.Fatal(err)
	}

	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}
	if m.Exists("abc/abc-2.mp4") {
		t.Error("Expected the deferred deletion to run on Close")
	}
}

func TestRemove(t *testing.T) {
	m := newTestManager(t)
	writeArtifact(t, m, "abc/abc-3.mp4", "media bytes")

	if err := m.Remove("abc-3", "abc/abc-3.mp4"); err != nil {
		t.Fatal(err)
	}
	if m.Exists("abc/abc-3.mp4") {
		t.Error("Expected the artifact to be gone")
	}

	// Removing an already removed artifact is not an error.
	if err := m.Remove("abc-3", "abc/abc-3.mp4"); err != nil {
		t.Errorf("Expected idempotent remove, got %v", err)
	}
}

func TestDeleteIfExists(t *testing.T) {
	m := newTestManager(t)
	if err := m.DeleteIfExists("not/there.src"); err != nil {
		t.Errorf("Expected missing files to be tolerated, got %v", err)
	}
}
