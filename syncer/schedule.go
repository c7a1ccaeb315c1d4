package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"worksync/internal/timeutil"
)

// Scheduler repeats sync passes on a fixed interval until its context ends.
// Each pass is an independent session; a failed pass does not stop the loop.
type Scheduler struct {
	Interval time.Duration
	Pass     func(ctx context.Context) error
	// Weekly, when set, runs after the first pass on WeeklyOn each week.
	Weekly   func(ctx context.Context) error
	WeeklyOn time.Weekday
	Log      logrus.FieldLogger

	now        func() time.Time
	lastWeekly time.Time
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.now == nil {
		s.now = time.Now
	}
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.Log.WithField("interval", interval.String()).Info("scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.Log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.Pass(ctx); err != nil {
		s.Log.WithError(err).Error("scheduled sync failed")
	}
	if s.Weekly == nil {
		return
	}
	now := s.now()
	if now.Weekday() != s.WeeklyOn || timeutil.SameDay(now, s.lastWeekly) {
		return
	}
	s.lastWeekly = now
	if err := s.Weekly(ctx); err != nil {
		s.Log.WithError(err).Error("weekly report failed")
	}
}
