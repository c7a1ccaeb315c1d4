package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"worksync/worklog"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "worksync_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SessionLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	started := mustParseRFC3339(t, "2026-03-06T08:00:00+01:00")

	if err := store.BeginSession("s-1", started); err != nil {
		t.Fatalf("begin session: %v", err)
	}

	sessions, err := store.ListSessions(0)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != StatusRunning {
		t.Fatalf("expected one running session, got %+v", sessions)
	}
	if !sessions[0].FinishedAt.IsZero() {
		t.Fatalf("expected zero finished time for running session")
	}

	stats := worklog.Stats{Created: 1, Skipped: 2, Duration: 1500 * time.Millisecond}
	if err := store.FinishSession("s-1", started.Add(2*time.Second), stats, StatusSucceeded, ""); err != nil {
		t.Fatalf("finish session: %v", err)
	}

	sessions, err = store.ListSessions(0)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	got := sessions[0]
	if got.Status != StatusSucceeded || got.Stats.Created != 1 || got.Stats.Skipped != 2 {
		t.Fatalf("unexpected finished session: %+v", got)
	}
	if got.Stats.Duration != 1500*time.Millisecond {
		t.Fatalf("expected duration 1.5s, got %s", got.Stats.Duration)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("expected started %s, got %s", started, got.StartedAt)
	}
}

func TestSQLiteStore_FinishUnknownSession(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	err := store.FinishSession("missing", time.Now(), worklog.Stats{}, StatusFailed, "boom")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListSessionsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := mustParseRFC3339(t, "2026-03-01T10:00:00Z")
	for i, id := range []string{"a", "b", "c"} {
		if err := store.BeginSession(id, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("begin session %s: %v", id, err)
		}
	}

	sessions, err := store.ListSessions(2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "c" || sessions[1].ID != "b" {
		t.Fatalf("unexpected sessions order: %+v", sessions)
	}

	since, err := store.ListSessionsSince(base.Add(30 * time.Minute))
	if err != nil {
		t.Fatalf("list sessions since: %v", err)
	}
	if len(since) != 2 || since[0].ID != "b" {
		t.Fatalf("unexpected sessions since: %+v", since)
	}
}

func TestSQLiteStore_RecordAndFilterOutcomes(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := mustParseRFC3339(t, "2026-03-06T09:00:00Z")
	if err := store.BeginSession("s-1", now); err != nil {
		t.Fatalf("begin session: %v", err)
	}

	outcomes := []worklog.Outcome{
		{
			Kind:   worklog.OutcomeCreated,
			Record: worklog.Record{ID: "101", IssueKey: "ABC-1", TimeSpentSeconds: 5400, AuthorName: "Ada", StartDate: "2026-03-05"},
			Target: worklog.TargetRef{Model: worklog.ModelTask, ID: 7},
			LineID: 900,
			Hours:  1.5,
		},
		{
			Kind:   worklog.OutcomeNoMapping,
			Record: worklog.Record{ID: "102", IssueKey: "ABC-2", TimeSpentSeconds: 60, AuthorAccountID: "acc-2", StartDate: "2026-03-06"},
		},
		{
			Kind:   worklog.OutcomeFailed,
			Record: worklog.Record{ID: "103", IssueKey: "ABC-3", TimeSpentSeconds: -5},
			Err:    errors.New("create failed"),
		},
	}
	for _, outcome := range outcomes {
		if _, err := store.RecordOutcome("s-1", outcome, now); err != nil {
			t.Fatalf("record outcome %s: %v", outcome.Record.ID, err)
		}
	}

	all, err := store.ListOutcomes(OutcomeFilter{})
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(all))
	}
	if all[0].WorklogID != "101" || all[0].Hours != 1.5 || all[0].LineID != 900 || all[0].TargetModel != "project.task" {
		t.Fatalf("unexpected first outcome: %+v", all[0])
	}
	if all[1].Author != "acc-2" {
		t.Fatalf("expected account id as author fallback, got %q", all[1].Author)
	}
	if all[2].WorkDate != "2026-03-06" || all[2].Seconds != 0 || all[2].Error != "create failed" {
		t.Fatalf("unexpected failed outcome: %+v", all[2])
	}

	created, err := store.ListOutcomes(OutcomeFilter{Kinds: []worklog.OutcomeKind{worklog.OutcomeCreated}})
	if err != nil {
		t.Fatalf("list created outcomes: %v", err)
	}
	if len(created) != 1 || created[0].IssueKey != "ABC-1" {
		t.Fatalf("unexpected created outcomes: %+v", created)
	}

	day := mustParseRFC3339(t, "2026-03-06T00:00:00Z")
	onDay, err := store.ListOutcomes(OutcomeFilter{From: day, To: day})
	if err != nil {
		t.Fatalf("list outcomes by day: %v", err)
	}
	if len(onDay) != 2 {
		t.Fatalf("expected 2 outcomes on 2026-03-06, got %d", len(onDay))
	}
}

func TestSQLiteStore_PruneBefore(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	old := mustParseRFC3339(t, "2026-01-01T10:00:00Z")
	recent := mustParseRFC3339(t, "2026-03-01T10:00:00Z")
	for id, at := range map[string]time.Time{"old": old, "recent": recent} {
		if err := store.BeginSession(id, at); err != nil {
			t.Fatalf("begin session: %v", err)
		}
		outcome := worklog.Outcome{Kind: worklog.OutcomeDuplicate, Record: worklog.Record{ID: id, StartDate: "2026-01-01"}}
		if _, err := store.RecordOutcome(id, outcome, at); err != nil {
			t.Fatalf("record outcome: %v", err)
		}
	}

	removed, err := store.PruneBefore(mustParseRFC3339(t, "2026-02-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}

	outcomes, err := store.ListOutcomes(OutcomeFilter{})
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].SessionID != "recent" {
		t.Fatalf("expected only recent outcome to remain, got %+v", outcomes)
	}
}

func mustParseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}
