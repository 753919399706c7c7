package track

import (
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultReportInterval is used by NewReporter when no interval is given.
const DefaultReportInterval = 10 * time.Second

// Reporter periodically logs a Counters snapshot, the usual companion of a
// long soak run. Does nothing with the counters beyond reading them.
type Reporter struct {
	log      *zap.Logger
	counters *Counters
	interval time.Duration
	stopped  *atomic.Bool
	quit     chan struct{}
	done     chan struct{}
}

// NewReporter creates a Reporter over c logging to log. A non-positive
// interval means DefaultReportInterval. Returns nil when log or c is nil.
func NewReporter(c *Counters, log *zap.Logger, interval time.Duration) *Reporter {
	if c == nil || log == nil {
		return nil
	}
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &Reporter{
		log:      log,
		counters: c,
		interval: interval,
		stopped:  atomic.NewBool(false),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run logs a snapshot every interval until Shutdown is called. It must be
// called in a separate routine.
func (r *Reporter) Run() {
	ticker := time.NewTicker(r.interval)
	defer func() {
		ticker.Stop()
		close(r.done)
	}()
	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	s := r.counters.Snapshot()
	r.log.Info("payload lifetime counters",
		zap.Int64("allocated", s.Allocated),
		zap.Int64("released", s.Released),
		zap.Int64("freed", s.Freed),
		zap.Int64("failed", s.Failed),
		zap.Int64("live", s.Allocated-s.Freed))
}

// Shutdown stops the loop started by Run, waits for it to finish and logs
// a final snapshot. Safe to call multiple times, but only after Run was
// started.
func (r *Reporter) Shutdown() {
	if r.stopped.CAS(false, true) {
		close(r.quit)
		<-r.done
		r.report()
	}
}
