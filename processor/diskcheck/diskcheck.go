// Package diskcheck provides a communication channel for checking the
// health of the artifact disk.
package diskcheck

import (
	"context"
	"errors"
	"log"
	"syscall"
	"time"
)

const (
	// Healthy represents a disk usage below the given threshold.
	Healthy Health = Health(true)

	// Sick represents a disk usage above the given threshold.
	Sick = Health(false)
)

var statfs = syscall.Statfs

// Checker monitors the disk holding the artifact directory and
// notifies its caller when the health state changes.
//
// Run is the main loop, alternating between the two health state
// functions; the one currently running implicates the current state.
// C is the channel the processor reads state changes from. The checker
// only writes to the channel on a state change, so the reader does not
// need to debounce.
//
// The processor uses the channel to stop admitting new downloads when
// disk capacity drops below the high watermark and to resume once
// usage falls back under the low one.
type Checker interface {
	Run(ctx context.Context)
	C() chan Health
}

// diskChecker represents a health state checker for the disk.
type diskChecker struct {

	// The check interval
	interval time.Duration

	// path is the artifact directory whose filesystem is checked
	path string

	// disk usage thresholds (%)
	high, low diskUsage

	// The processor-diskChecker communication channel
	c chan Health
}

// diskUsage represents the disk usage percentage
// For example `diskUsage := 90` indicates that the disk usage is at 90%.
type diskUsage int

// Health represents the disk health state.
type Health bool

func (h Health) String() string {
	if h == Healthy {
		return "healthy"
	}
	return "sick"
}

// New returns a new checker for the provided directory path and
// thresholds.
func New(path string, high int, low int, interval time.Duration) (Checker, error) {
	// Validate the input thresholds: 0 <= low < high <= 100
	if low >= high {
		return nil, errors.New("low threshold must be smaller than high")
	}
	if low < 0 || low > 100 {
		return nil, errors.New("low threshold must be between 0 and 100")
	}
	if high < 0 || high > 100 {
		return nil, errors.New("high threshold must be between 0 and 100")
	}
	// Fail early if we cannot stat the artifact directory's filesystem.
	_, err := fetchDiskUsage(path)
	if err != nil {
		return nil, err
	}

	return &diskChecker{
		path:     path,
		high:     diskUsage(high),
		low:      diskUsage(low),
		interval: interval,
		c:        make(chan Health),
	}, nil
}

// C is the health state communication channel used by the processor.
func (d *diskChecker) C() chan Health {
	return d.c
}

// Run informs its caller about the disk state.
//
// The disk is authoritatively considered healthy at start. Each health
// checking function blocks until the state flips or ctx is canceled.
func (d *diskChecker) Run(ctx context.Context) {
	var err error
	for {
		if err = d.waitForSick(ctx); err != nil {
			return
		}
		if err = d.waitForHealthy(ctx); err != nil {
			return
		}
	}
}

// waitForSick checks the disk health at regular intervals.
func (d *diskChecker) waitForSick(ctx context.Context) error {
	tick := time.NewTicker(d.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			du, err := fetchDiskUsage(d.path)
			if err != nil {
				log.Printf("[diskcheck] Disk usage error in waitForSick: %v", err)
				continue
			}
			if du > d.high {
				d.c <- Sick
				return nil
			}
		}
	}
}

// waitForHealthy checks the disk health at regular intervals.
func (d *diskChecker) waitForHealthy(ctx context.Context) error {
	tick := time.NewTicker(d.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			du, err := fetchDiskUsage(d.path)
			if err != nil {
				log.Printf("[diskcheck] Disk usage error in waitForHealthy: %v", err)
				continue
			}
			if du <= d.low {
				d.c <- Healthy
				return nil
			}
		}
	}
}

// fetchDiskUsage returns a new disk usage for the provided directory path.
func fetchDiskUsage(path string) (diskUsage, error) {
	fs := syscall.Statfs_t{}
	err := statfs(path, &fs)
	if err != nil {
		return 0, errors.New("Could not get file system statistics" + err.Error())
	}
	all := fs.Blocks * uint64(fs.Bsize)
	free := fs.Bfree * uint64(fs.Bsize)
	used := all - free
	usage := (float32(used) / float32(all)) * 100
	return diskUsage(usage), nil
}
