// Package rhythm drives the core's daily wake and sleep cycle from cron
// expressions.
package rhythm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

// Lifecycle is the part of the core the scheduler drives.
type Lifecycle interface {
	WakeUp()
	Sleep()
}

type job struct {
	name     string
	expr     string
	fire     func()
	lastSlot time.Time
}

// Scheduler checks its cron expressions on every tick and fires each at
// most once per minute.
type Scheduler struct {
	gron     *gronx.Gronx
	jobs     []*job
	interval time.Duration
	cancel   context.CancelFunc
	mu       sync.Mutex
	logger   *zap.Logger
}

// New creates a scheduler. An empty expression disables that transition.
func New(wakeCron, sleepCron string, interval time.Duration, lc Lifecycle, logger *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s := &Scheduler{
		gron:     gronx.New(),
		interval: interval,
		logger:   logger,
	}
	for _, j := range []*job{
		{name: "wake", expr: wakeCron, fire: lc.WakeUp},
		{name: "sleep", expr: sleepCron, fire: lc.Sleep},
	} {
		if j.expr == "" {
			continue
		}
		if !s.gron.IsValid(j.expr) {
			return nil, fmt.Errorf("invalid %s cron expression %q", j.name, j.expr)
		}
		s.jobs = append(s.jobs, j)
	}
	return s, nil
}

// Start begins the tick loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(ctx)
	s.logger.Info("rhythm scheduler started",
		zap.Int("jobs", len(s.jobs)),
		zap.Duration("interval", s.interval))
}

// Stop halts the tick loop.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.logger.Info("rhythm scheduler stopped")
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.OnTick(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.OnTick(now)
		}
	}
}

// OnTick fires every job due at now that has not fired in now's minute.
// Expressions are evaluated at minute granularity.
func (s *Scheduler) OnTick(now time.Time) {
	slot := now.Truncate(time.Minute)

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if j.lastSlot.Equal(slot) {
			continue
		}
		ok, err := s.gron.IsDue(j.expr, slot)
		if err != nil {
			s.logger.Warn("cron evaluation failed", zap.String("job", j.name), zap.Error(err))
			continue
		}
		if ok {
			j.lastSlot = slot
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.logger.Info("rhythm firing", zap.String("job", j.name), zap.Time("at", now))
		j.fire()
	}
}
