// Package stats exposes per-module counters through expvar.
package stats

import (
	"context"
	"expvar"
	"log"
	"time"
)

// Stats encapsulates an expvar Map and acts as a metric reporting
// interface for each module.
type Stats struct {
	*expvar.Map
	interval   time.Duration
	reportfunc func(m *expvar.Map)
}

// Run calls the report function of Stats using the specified interval.
// It shuts down when the provided context is cancelled.
func (s *Stats) Run(ctx context.Context) {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Stats Deamon Exiting")
			return
		case <-tick.C:
			s.reportfunc(s.Map)
		}
	}
}

// New initializes a Stats with the map published under id. An already
// published map is reused and reset, since expvar panics on duplicate
// registration.
func New(id string, interval time.Duration, report func(*expvar.Map)) *Stats {
	var m *expvar.Map
	if v := expvar.Get(id); v != nil {
		m = v.(*expvar.Map)
		m.Init()
	} else {
		m = expvar.NewMap(id)
	}
	return &Stats{m, interval, report}
}
