package tempo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"worksync/notify"
	"worksync/worklog"
)

type collected struct {
	kind     string
	severity notify.Severity
}

type recordingReporter struct {
	records []collected
}

func (r *recordingReporter) Collect(kind string, _ error, _ string, severity notify.Severity) {
	r.records = append(r.records, collected{kind: kind, severity: severity})
}

type fakeLookup struct {
	keys     map[int64]string
	names    map[string]string
	keyCalls int
}

func (f *fakeLookup) IssueKeyByID(_ context.Context, id int64) (string, error) {
	f.keyCalls++
	key, ok := f.keys[id]
	if !ok {
		return "", errors.New("issue not found")
	}
	return key, nil
}

func (f *fakeLookup) AccountName(_ context.Context, accountID string) (string, error) {
	name, ok := f.names[accountID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, lookup IssueLookup, reporter notify.Reporter) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	client := NewClient(Config{BaseURL: server.URL, APIToken: "tempo-token", PageLimit: 1000}, lookup, reporter, log)
	client.now = func() time.Time { return time.Date(2026, 3, 6, 9, 30, 0, 0, time.UTC) }
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchWorklogs_ParsesResults(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/worklogs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tempo-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		query := r.URL.Query()
		if query.Get("from") != "2026-03-05" || query.Get("to") != "2026-03-06" || query.Get("limit") != "1000" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, `{"metadata":{"count":2,"limit":1000},"results":[
			{"tempoWorklogId":501,"issue":{"id":10042,"key":"ABC-1"},"timeSpentSeconds":5400,
			 "startDate":"2026-03-05","description":"Pairing","author":{"accountId":"acc-1"}},
			{"tempoWorklogId":502,"issue":{"id":10043},"timeSpentSeconds":900,
			 "startDate":"2026-03-06","author":{"accountId":"acc-2","displayName":"Bob"}}]}`)
	}, &fakeLookup{}, reporter)

	records := client.FetchWorklogs(context.Background(), 24)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.ID != "501" || first.IssueID != 10042 || first.IssueKey != "ABC-1" || first.TimeSpentSeconds != 5400 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.StartDate != "2026-03-05" || first.Description != "Pairing" || first.AuthorAccountID != "acc-1" {
		t.Fatalf("unexpected first record details: %+v", first)
	}
	if records[1].IssueKey != "" || records[1].AuthorName != "Bob" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
	if len(reporter.records) != 0 {
		t.Fatalf("expected no error records, got %+v", reporter.records)
	}
}

func TestFetchWorklogs_UnauthorizedIsCriticalAndEmpty(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"errors":[{"message":"invalid token"}]}`)
	}, &fakeLookup{}, reporter)

	if records := client.FetchWorklogs(context.Background(), 24); len(records) != 0 {
		t.Fatalf("expected empty result, got %d", len(records))
	}
	if len(reporter.records) != 1 {
		t.Fatalf("expected one record, got %+v", reporter.records)
	}
	if got := reporter.records[0]; got.kind != notify.KindTempoAuth || got.severity != notify.SeverityCritical {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFetchWorklogs_ServerErrorIsCriticalAndEmpty(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{}`)
	}, &fakeLookup{}, reporter)

	if records := client.FetchWorklogs(context.Background(), 24); len(records) != 0 {
		t.Fatalf("expected empty result, got %d", len(records))
	}
	if len(reporter.records) != 1 || reporter.records[0].kind != notify.KindTempoRequest {
		t.Fatalf("unexpected records: %+v", reporter.records)
	}
}

func TestEnrich_KeepsRecordWithKey(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, lookup, &recordingReporter{})

	in := worklog.Record{ID: "1", IssueID: 5, IssueKey: "ABC-1", AuthorName: "Ada"}
	out, ok := client.Enrich(context.Background(), in)
	if !ok || out != in {
		t.Fatalf("expected unchanged record, got %+v ok=%v", out, ok)
	}
	if lookup.keyCalls != 0 {
		t.Fatalf("expected no key lookup")
	}
}

func TestEnrich_LooksUpKeyAndAuthor(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{keys: map[int64]string{10043: "ABC-2"}, names: map[string]string{"acc-2": "Bob"}}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, lookup, &recordingReporter{})

	in := worklog.Record{ID: "502", IssueID: 10043, AuthorAccountID: "acc-2"}
	out, ok := client.Enrich(context.Background(), in)
	if !ok {
		t.Fatalf("expected enrichment to succeed")
	}
	if out.IssueKey != "ABC-2" || out.AuthorName != "Bob" {
		t.Fatalf("unexpected enriched record: %+v", out)
	}
	if in.IssueKey != "" {
		t.Fatalf("input record must not be mutated")
	}
}

func TestEnrich_FailedLookupDropsRecord(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, &fakeLookup{}, reporter)

	for _, in := range []worklog.Record{
		{ID: "1", IssueID: 999},
		{ID: "2"},
	} {
		if _, ok := client.Enrich(context.Background(), in); ok {
			t.Fatalf("expected record %s to be dropped", in.ID)
		}
	}
	if len(reporter.records) != 2 {
		t.Fatalf("expected two records, got %+v", reporter.records)
	}
	for _, record := range reporter.records {
		if record.kind != notify.KindEnrich || record.severity != notify.SeverityCritical {
			t.Fatalf("unexpected record: %+v", record)
		}
	}
}

func TestEnrich_AuthorLookupFailureIsNotAnError(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, &fakeLookup{}, reporter)

	out, ok := client.Enrich(context.Background(), worklog.Record{ID: "1", IssueKey: "ABC-1", AuthorAccountID: "unknown"})
	if !ok || out.AuthorName != "" {
		t.Fatalf("unexpected result: %+v ok=%v", out, ok)
	}
	if len(reporter.records) != 0 {
		t.Fatalf("expected no error records, got %+v", reporter.records)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit 1, got %q", r.URL.Query().Get("limit"))
		}
		writeJSON(w, http.StatusOK, `{"results":[]}`)
	}, &fakeLookup{}, &recordingReporter{})

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
