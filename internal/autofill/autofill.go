// Package autofill marks the current week as filled on the configured
// weekday. The check is idempotent; Run drives it on a cron schedule.
package autofill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
)

// DefaultSpec runs the check once an hour.
const DefaultSpec = "@hourly"

// FillStore is the part of settings.Store the scheduler needs.
type FillStore interface {
	AutoFill() (enabled bool, day time.Weekday)
	MarkFilled(k week.Key) (bool, error)
}

// Scheduler performs the weekday-gated fill.
type Scheduler struct {
	store FillStore
	now   func() time.Time

	mu sync.Mutex
}

func New(store FillStore) *Scheduler {
	return &Scheduler{store: store, now: time.Now}
}

// CheckAndMaybeFill marks the week of now as filled when auto-fill is on,
// now falls on the fill weekday and the week is not filled yet. It reports
// whether a week was added. Repeated calls on the same day add at most once.
func (s *Scheduler) CheckAndMaybeFill(now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, day := s.store.AutoFill()
	if !enabled || now.Weekday() != day {
		return false, nil
	}
	k := week.KeyFor(now)
	added, err := s.store.MarkFilled(k)
	if err != nil {
		return false, fmt.Errorf("auto-fill %s: %w", k, err)
	}
	if added {
		appLog.Info("week auto-filled", "week", k)
	}
	return added, nil
}

// Run checks once immediately and then on spec until ctx is done.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("auto-fill schedule %q: %w", spec, err)
	}

	s.tick()
	c.Start()
	appLog.Info("auto-fill scheduler started", "schedule", spec)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	appLog.Info("auto-fill scheduler stopped")
	return nil
}

func (s *Scheduler) tick() {
	if _, err := s.CheckAndMaybeFill(s.now()); err != nil {
		appLog.Error("auto-fill check failed", err)
	}
}
