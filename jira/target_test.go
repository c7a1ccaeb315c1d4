package jira

import (
	"testing"

	"worksync/notify"
	"worksync/worklog"
)

func TestParseTargetRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		url     string
		want    worklog.TargetRef
		ok      bool
		records int
	}{
		{
			name: "task",
			url:  "https://odoo.example.com/web#id=7346&model=project.task",
			want: worklog.TargetRef{Model: worklog.ModelTask, ID: 7346},
			ok:   true,
		},
		{
			name: "encoded ticket model",
			url:  "https://odoo.example.com/web#id=12&model=helpdesk%2Eticket",
			want: worklog.TargetRef{Model: worklog.ModelTicket, ID: 12},
			ok:   true,
		},
		{
			name: "default model",
			url:  "https://odoo.example.com/web?debug=1#id=55&view_type=form",
			want: worklog.TargetRef{Model: worklog.ModelTask, ID: 55},
			ok:   true,
		},
		{
			name: "action id is not the record id",
			url:  "https://odoo.example.com/web#action_id=9&id=4&model=project.task",
			want: worklog.TargetRef{Model: worklog.ModelTask, ID: 4},
			ok:   true,
		},
		{
			name: "elided link prefix",
			url:  "...id=7346&model=project.task",
			want: worklog.TargetRef{Model: worklog.ModelTask, ID: 7346},
			ok:   true,
		},
		{
			name: "free text before the id",
			url:  "Odoo task: id=7346&model=project.task",
			want: worklog.TargetRef{Model: worklog.ModelTask, ID: 7346},
			ok:   true,
		},
		{
			name: "free text ticket",
			url:  "see odoo id=12&model=helpdesk%2Eticket",
			want: worklog.TargetRef{Model: worklog.ModelTicket, ID: 12},
			ok:   true,
		},
		{
			name: "id at start of text",
			url:  "id=88",
			want: worklog.TargetRef{Model: worklog.ModelTask, ID: 88},
			ok:   true,
		},
		{name: "only a prefixed id", url: "https://odoo.example.com/web#action_id=9", records: 1},
		{name: "no id", url: "no-id-here", records: 1},
		{name: "non numeric id", url: "https://odoo.example.com/web#id=abc", records: 1},
		{name: "zero id", url: "https://odoo.example.com/web#id=0", records: 1},
		{name: "unknown model", url: "https://odoo.example.com/web#id=3&model=sale.order", records: 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reporter := &recordingReporter{}
			got, ok := ParseTargetRef(tc.url, reporter)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
			if len(reporter.records) != tc.records {
				t.Fatalf("expected %d records, got %+v", tc.records, reporter.records)
			}
			for _, record := range reporter.records {
				if record.kind != notify.KindMalformedTarget || record.severity != notify.SeverityNormal {
					t.Fatalf("unexpected record: %+v", record)
				}
			}
		})
	}
}
