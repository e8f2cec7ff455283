package httpbackend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mediagrab/mediagrab/job"
)

func TestNotifySuccess(t *testing.T) {
	cbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer cbServer.Close()

	b := &Backend{}
	if err := b.Start(context.Background(), map[string]interface{}{}); err != nil {
		t.Fatalf("Start should not return error, got %s", err)
	}

	e := job.Event{
		JobID:       "successjob",
		ResourceURL: "https://youtube.com/watch?v=x",
		State:       job.StateReady,
		Success:     true,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Notify(cbServer.URL, e); err != nil {
			t.Errorf("Expected Notify to be successful, got %s", err)
		}
	}()

	report := <-b.DeliveryReports()
	if !report.Delivered {
		t.Fatal("Expected event delivery to be successful")
	}
	if report.JobID != "successjob" {
		t.Errorf("Unexpected report %+v", report)
	}

	wg.Wait()
	if err := b.Stop(); err != nil {
		t.Fatalf("Error while finalizing: %s", err)
	}
}

func TestNotifyFailure(t *testing.T) {
	cbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer cbServer.Close()

	b := &Backend{}
	if err := b.Start(context.Background(), map[string]interface{}{}); err != nil {
		t.Fatal(err)
	}

	e := job.Event{JobID: "failjob", State: job.StateFailed}
	if err := b.Notify(cbServer.URL, e); err == nil {
		t.Error("Expected Notify to fail on a 5xx response")
	}

	b.Stop()
}
