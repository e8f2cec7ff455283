// Package api exposes the HTTP surface: analyze, download, progress
// (plain or SSE), the one-time result serve and cancellation.
package api

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediagrab/mediagrab/artifact"
	"github.com/mediagrab/mediagrab/extractor"
	"github.com/mediagrab/mediagrab/identity"
	"github.com/mediagrab/mediagrab/job"
	"github.com/mediagrab/mediagrab/platform"
	"github.com/mediagrab/mediagrab/processor"
	"github.com/mediagrab/mediagrab/storage"
)

// sseInterval is how often an SSE progress stream re-checks the job.
const sseInterval = 500 * time.Millisecond

type API struct {
	Server    *http.Server
	Storage   *storage.Storage
	Processor *processor.Processor
	Extractor *extractor.Extractor
	Rotator   *identity.Rotator
	Artifacts *artifact.Manager
	Log       *log.Logger

	HeartbeatPath string
}

// New wires the routes and returns an API listening on host:port.
func New(s *storage.Storage, p *processor.Processor, e *extractor.Extractor,
	rot *identity.Rotator, art *artifact.Manager, host string, port int,
	heartbeatPath string, logger *log.Logger) *API {
	as := &API{
		Storage:       s,
		Processor:     p,
		Extractor:     e,
		Rotator:       rot,
		Artifacts:     art,
		Log:           logger,
		HeartbeatPath: heartbeatPath,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", as.analyze)
		r.Post("/download", as.download)
		r.Get("/progress/{id}", as.progress)
		r.Get("/result/{id}", as.result)
		r.Post("/cancel/{id}", as.cancel)
	})

	if heartbeatPath != "" {
		r.Get(heartbeatPath, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
	}

	r.Handle("/debug/vars", expvar.Handler())

	fs, err := staticFs()
	if err != nil {
		logger.Println("Error initializing static assets:", err)
	} else {
		r.Handle("/*", http.FileServer(fs))
	}

	as.Server = &http.Server{Handler: r, Addr: host + ":" + strconv.Itoa(port)}
	return as
}

// errorBody is the uniform error payload of the API.
type errorBody struct {
	ErrorKind job.ErrorKind `json:"error_kind"`
	Error     string        `json:"error"`
}

func writeError(w http.ResponseWriter, status int, kind job.ErrorKind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{ErrorKind: kind, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// extractorStatus maps an extractor failure onto an HTTP status.
func extractorStatus(kind job.ErrorKind) int {
	switch kind {
	case job.ErrTimeout:
		return http.StatusGatewayTimeout
	case job.ErrContentUnavailable:
		return http.StatusNotFound
	case job.ErrBlockedByPlatform, job.ErrNetwork, job.ErrToolInvocation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// analyze synchronously probes a URL and returns the format options.
// No job record is created.
func (as *API) analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, job.ErrMalformedURL, "Could not parse request body")
		return
	}
	defer r.Body.Close()

	pl, err := platform.Resolve(req.URL)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			writeError(w, http.StatusBadRequest, job.ErrUnsupportedPlatform, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, job.ErrMalformedURL, err.Error())
		return
	}

	res, err := as.Extractor.Probe(r.Context(), req.URL, as.Rotator.Pick(pl))
	if err != nil {
		var exErr *extractor.Error
		if errors.As(err, &exErr) {
			writeError(w, extractorStatus(exErr.Kind), exErr.Kind, exErr.Detail())
			return
		}
		writeError(w, http.StatusInternalServerError, job.ErrToolInvocation, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Platform platform.Platform `json:"platform"`
		*job.ProbeResult
	}{pl, res})
}

// download validates and registers a new job and kicks off its
// background processing.
func (as *API) download(w http.ResponseWriter, r *http.Request) {
	j := new(job.Job)
	if err := json.NewDecoder(r.Body).Decode(j); err != nil {
		writeError(w, http.StatusBadRequest, job.ErrMalformedURL, err.Error())
		return
	}
	defer r.Body.Close()

	pl, err := platform.Resolve(j.URL)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			writeError(w, http.StatusBadRequest, job.ErrUnsupportedPlatform, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, job.ErrMalformedURL, err.Error())
		return
	}
	j.Platform = pl

	if !as.Processor.Healthy() {
		writeError(w, http.StatusServiceUnavailable, job.ErrProcessing,
			"Not accepting new downloads, try again later")
		return
	}

	stored, err := as.Storage.Create(*j)
	if err != nil {
		writeError(w, http.StatusInternalServerError, job.ErrProcessing,
			"Error queuing download: "+err.Error())
		return
	}
	as.Processor.Enqueue(stored)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": stored.ID})
}

// progress returns a job snapshot, or streams snapshots as server-sent
// events when the client asks for text/event-stream.
func (as *API) progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, err := as.Storage.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, job.ErrNotFound, "No such job: "+id)
		return
	}

	if r.Header.Get("Accept") == "text/event-stream" {
		as.progressStream(w, r, j)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

// progressStream pushes job snapshots over SSE until the job settles.
func (as *API) progressStream(w http.ResponseWriter, r *http.Request, j job.Job) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, j)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(snap job.Job) bool {
		payload, err := json.Marshal(snap)
		if err != nil {
			return false
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return true
	}

	if !send(j) {
		return
	}
	if j.State.Terminal() || j.State == job.StateReady {
		return
	}
	lastState, lastProgress := j.State, j.Progress

	tick := time.NewTicker(sseInterval)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			snap, err := as.Storage.Get(j.ID)
			if err != nil {
				// Swept away mid-stream.
				return
			}
			if snap.State != lastState || snap.Progress != lastProgress {
				if !send(snap) {
					return
				}
				lastState, lastProgress = snap.State, snap.Progress
			}
			if snap.State.Terminal() || snap.State == job.StateReady {
				return
			}
		}
	}
}

// result performs the one-time artifact serve. A successful serve
// expires the job and deletes the artifact.
func (as *API) result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, err := as.Storage.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, job.ErrNotFound, "No such job: "+id)
		return
	}
	if j.State != job.StateReady {
		writeError(w, http.StatusConflict, job.ErrInvalidState,
			fmt.Sprintf("Job is %s, not Ready", j.State))
		return
	}

	stream, err := as.Artifacts.OpenServe(j.ID, j.ArtifactPath)
	if err != nil {
		switch {
		case errors.Is(err, artifact.ErrAlreadyServed):
			writeError(w, http.StatusConflict, job.ErrInvalidState, "Artifact already served")
		case errors.Is(err, artifact.ErrMissing):
			writeError(w, http.StatusNotFound, job.ErrNotFound, "Artifact no longer available")
		default:
			writeError(w, http.StatusInternalServerError, job.ErrProcessing, err.Error())
		}
		return
	}

	filename := j.ID + ".mp4"
	contentType := "video/mp4"
	if j.AudioOnly() {
		filename = j.ID + ".mp3"
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(stream.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	_, copyErr := io.Copy(w, stream)
	stream.Close()
	if copyErr != nil {
		// The client went away mid-transfer; the serve does not count.
		as.Log.Printf("Error streaming artifact for job %s: %s", j.ID, copyErr)
		return
	}

	as.Artifacts.MarkServed(j.ID)
	if _, err := as.Storage.Update(j.ID, func(jj *job.Job) {
		jj.State = job.StateExpired
		jj.ArtifactPath = ""
	}); err != nil {
		as.Log.Printf("Error expiring job %s after serve: %s", j.ID, err)
	}
	if err := as.Artifacts.Remove(j.ID, j.ArtifactPath); err != nil {
		as.Log.Printf("Error deleting artifact for job %s: %s", j.ID, err)
	}
}

// cancel requests cancellation of a running job. It is idempotent.
func (as *API) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := as.Processor.Cancel(id); err != nil {
		writeError(w, http.StatusNotFound, job.ErrNotFound, "No such job: "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
