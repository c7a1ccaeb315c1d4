package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"worksync/storage"
	"worksync/worklog"
)

func TestBuildReport_ReadsLedgerWindow(t *testing.T) {
	t.Parallel()

	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -10)
	recent := now.Add(-2 * time.Hour)

	for _, session := range []struct {
		id      string
		started time.Time
		record  worklog.Record
	}{
		{id: "old", started: old, record: worklog.Record{ID: "1", IssueKey: "ABC-1", StartDate: old.Format("2006-01-02"), TimeSpentSeconds: 3600}},
		{id: "recent", started: recent, record: worklog.Record{ID: "2", IssueKey: "OPS-7", StartDate: "2026-03-05", TimeSpentSeconds: 5400}},
	} {
		if err := store.BeginSession(session.id, session.started); err != nil {
			t.Fatalf("begin %s: %v", session.id, err)
		}
		outcome := worklog.Outcome{Kind: worklog.OutcomeCreated, Record: session.record, Hours: float64(session.record.TimeSpentSeconds) / 3600}
		if _, err := store.RecordOutcome(session.id, outcome, session.started); err != nil {
			t.Fatalf("record %s: %v", session.id, err)
		}
		stats := worklog.Stats{Created: 1, Duration: time.Second}
		if err := store.FinishSession(session.id, session.started.Add(time.Second), stats, storage.StatusSucceeded, ""); err != nil {
			t.Fatalf("finish %s: %v", session.id, err)
		}
	}

	report, err := buildReport(store, 7, now)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Sessions != 1 || report.Created != 1 {
		t.Fatalf("expected only the recent session, got %+v", report)
	}
	if report.HoursBooked != 1.5 {
		t.Fatalf("expected 1.5 hours, got %.2f", report.HoursBooked)
	}
	if len(report.Projects) != 1 || report.Projects[0] != "OPS" {
		t.Fatalf("unexpected projects: %v", report.Projects)
	}
	if report.From.Format("2006-01-02") != "2026-02-28" {
		t.Fatalf("expected seven-day window starting 2026-02-28, got %s", report.From)
	}
}
