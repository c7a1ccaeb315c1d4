package syncer

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"worksync/notify"
	"worksync/storage"
	"worksync/worklog"
)

func TestSchedulerTick_WeeklyOncePerDay(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	log.SetOutput(io.Discard)

	passes, weeklies := 0, 0
	friday := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	current := friday
	scheduler := &Scheduler{
		Pass: func(context.Context) error {
			passes++
			return errors.New("pass failed")
		},
		Weekly: func(context.Context) error {
			weeklies++
			return nil
		},
		WeeklyOn: time.Friday,
		Log:      log,
		now:      func() time.Time { return current },
	}

	scheduler.tick(context.Background())
	current = friday.Add(time.Hour)
	scheduler.tick(context.Background())
	current = friday.Add(24 * time.Hour)
	scheduler.tick(context.Background())
	current = friday.Add(7 * 24 * time.Hour)
	scheduler.tick(context.Background())

	if passes != 4 {
		t.Fatalf("expected 4 passes despite failures, got %d", passes)
	}
	if weeklies != 2 {
		t.Fatalf("expected weekly report on two fridays, got %d", weeklies)
	}
}

func TestSchedulerStart_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	passes := 0
	scheduler := &Scheduler{
		Interval: time.Hour,
		Pass: func(context.Context) error {
			passes++
			cancel()
			return nil
		},
		Log: logrus.New(),
	}

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if passes != 1 {
		t.Fatalf("expected one immediate pass, got %d", passes)
	}
}

func TestBuildWeeklyReport(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	sessions := []storage.SessionRow{
		{StartedAt: last.Add(-time.Hour), Status: storage.StatusSucceeded, Stats: worklog.Stats{Created: 2, Skipped: 1, Duration: 2 * time.Second}},
		{StartedAt: last, Status: storage.StatusFailed, Stats: worklog.Stats{Errors: 1, Duration: 4 * time.Second}},
		{StartedAt: last.Add(-2 * time.Hour), Status: storage.StatusRunning},
	}
	outcomes := []storage.OutcomeRow{
		{Kind: worklog.OutcomeCreated, IssueKey: "ABC-1", Hours: 1.5},
		{Kind: worklog.OutcomeCreated, IssueKey: "OPS-2", Hours: 0.25},
		{Kind: worklog.OutcomeDuplicate, IssueKey: "ABC-1"},
		{Kind: worklog.OutcomeNoMapping, IssueKey: "ABC-9"},
	}

	report := BuildWeeklyReport(from, to, sessions, outcomes)
	want := notify.WeeklyReport{
		From:           from,
		To:             to,
		Sessions:       3,
		FailedSessions: 1,
		Created:        2,
		Skipped:        1,
		Errors:         1,
		Duplicates:     1,
		NoMapping:      1,
		HoursBooked:    1.75,
		AvgDuration:    3 * time.Second,
		LastSession:    last,
	}
	if len(report.Projects) != 2 {
		t.Fatalf("expected two projects, got %v", report.Projects)
	}
	report.Projects = nil
	if !reflect.DeepEqual(report, want) {
		t.Fatalf("unexpected report:\n got %+v\nwant %+v", report, want)
	}
}
