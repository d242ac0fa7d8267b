// Package refresh implements the optional periodic cache-refresh
// scheduler for long-lived embedders of the engine (spec §4.1's
// "dumps are periodically refreshed" extended to a background
// scheduler for processes that don't restart daily).
//
// robfig/cron/v3 is a dependency the retrieved pack already commits to
// transitively (JustinTDCT-CineVault pulls it in via asynq); it is the
// natural fit here since the scheduler needs cron-expression semantics,
// not just a fixed ticker.
package refresh

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/tvrank/tvrank/internal/logging"
)

// Func is the work a Scheduler runs on each tick. It receives a fresh
// context per invocation and reports whether it actually refreshed
// anything (Engine.RefreshIfStale, for one, returns false without
// opening the dumps while both are still within the freshness window).
type Func func(ctx context.Context) (refreshed bool, err error)

// Scheduler runs fn on a cron schedule until Stop is called.
type Scheduler struct {
	cron   *cron.Cron
	fn     Func
	logger logging.Logger
}

// New parses spec (standard 5-field cron syntax, e.g. "0 4 * * *" for
// daily at 04:00) and returns a Scheduler ready to Start.
func New(spec string, fn Func, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewDefault(0)
	}
	c := cron.New()
	s := &Scheduler{cron: c, fn: fn, logger: logger}
	_, err := c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running fn on schedule, in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels future ticks and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	refreshed, err := s.fn(context.Background())
	if err != nil {
		s.logger.Error("scheduled cache refresh failed", err)
		return
	}
	if refreshed {
		s.logger.Info("scheduled cache refresh rebuilt the shard snapshot")
	} else {
		s.logger.Debug("scheduled cache refresh found dumps already fresh")
	}
}
