// Package notifier delivers job completion events to caller-provided
// destinations through pluggable backends. Delivery is best effort and
// never feeds back into job state.
package notifier

import (
	"context"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/mediagrab/mediagrab/backend"
	"github.com/mediagrab/mediagrab/backend/httpbackend"
	"github.com/mediagrab/mediagrab/backend/kafkabackend"
	"github.com/mediagrab/mediagrab/backend/sqsbackend"
	"github.com/mediagrab/mediagrab/job"
)

// Notifier dispatches completion events to the backend named by each
// job's CallbackType.
type Notifier struct {
	Log *log.Logger

	backends map[string]backend.Backend
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New returns a Notifier with one started backend per entry in cfg.
// Valid keys are "http", "kafka" and "sqs"; the value is the backend's
// own configuration. The http backend is always available, even with
// an empty cfg.
func New(cfg map[string]map[string]interface{}, logger *log.Logger) (*Notifier, error) {
	n := &Notifier{
		Log:      logger,
		backends: make(map[string]backend.Backend),
	}

	if _, ok := cfg["http"]; !ok {
		if cfg == nil {
			cfg = make(map[string]map[string]interface{})
		}
		cfg["http"] = map[string]interface{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	for id, becfg := range cfg {
		var be backend.Backend
		switch id {
		case "http":
			be = new(httpbackend.Backend)
		case "kafka":
			be = new(kafkabackend.Backend)
		case "sqs":
			be = new(sqsbackend.Backend)
		default:
			cancel()
			return nil, errors.Errorf("Invalid notifier backend %q", id)
		}

		if err := be.Start(ctx, becfg); err != nil {
			cancel()
			return nil, errors.Wrapf(err, "Could not start %s backend", id)
		}
		n.backends[be.ID()] = be

		n.wg.Add(1)
		go func(be backend.Backend) {
			defer n.wg.Done()
			n.drainReports(be)
		}(be)
	}

	return n, nil
}

// Notify builds the completion event for j and hands it to the backend
// selected by j.CallbackType. Jobs without a callback are a no-op.
func (n *Notifier) Notify(j *job.Job, artifactURL string) {
	if j.CallbackType == "" {
		return
	}

	be, ok := n.backends[j.CallbackType]
	if !ok {
		n.Log.Printf("No %q backend configured, dropping event for %s", j.CallbackType, j)
		return
	}

	e, err := j.Event(artifactURL)
	if err != nil {
		n.Log.Printf("Error building event for %s: %s", j, err)
		return
	}

	if err := be.Notify(j.CallbackDst, e); err != nil {
		n.Log.Printf("Error delivering event for %s via %s: %s", j, be.ID(), err)
	}
}

// drainReports consumes a backend's delivery reports until its channel
// closes, logging failed deliveries.
func (n *Notifier) drainReports(be backend.Backend) {
	for report := range be.DeliveryReports() {
		if !report.Delivered {
			n.Log.Printf("Delivery failure from %s backend for job %s: %s",
				be.ID(), report.JobID, report.DeliveryError)
		}
	}
}

// Stop stops all backends and waits for their report drains to finish.
func (n *Notifier) Stop() {
	n.cancel()
	for id, be := range n.backends {
		if err := be.Stop(); err != nil {
			n.Log.Printf("Error stopping %s backend: %s", id, err)
		}
	}
	n.wg.Wait()
}
