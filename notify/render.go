package notify

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"worksync/worklog"
)

// Error kinds recorded by the sync clients.
const (
	KindTempoAuth          = "tempo_auth"
	KindTempoRequest       = "tempo_request"
	KindEnrich             = "enrich_issue_key"
	KindJiraAuth           = "jira_auth"
	KindJiraRequest        = "jira_request"
	KindMalformedTarget    = "malformed_target_url"
	KindOdooConnect        = "odoo_connect"
	KindOdooRequest        = "odoo_request"
	KindTargetMissing      = "target_missing"
	KindEmployeeFallback   = "employee_fallback"
	KindEmployeeUnresolved = "employee_unresolved"
	KindOdooPermission     = "odoo_permission"
	KindOdooCreate         = "odoo_create"
	KindUnexpected         = "unexpected"
)

var kindExplanations = map[string]string{
	KindTempoAuth:          "Tempo rejected the API token. Check that it is valid and allowed to view worklogs.",
	KindTempoRequest:       "Tempo could not be reached or answered with an error. No worklogs were fetched.",
	KindEnrich:             "A worklog referenced a Jira issue by id only and the key lookup failed. The worklog was dropped.",
	KindJiraAuth:           "Jira rejected the configured user or API token.",
	KindJiraRequest:        "Jira could not be reached, timed out or answered with an error.",
	KindMalformedTarget:    "The Odoo link on a Jira issue or its epic has no usable id. Fix the link on the issue.",
	KindOdooConnect:        "Login to Odoo failed. No timesheets were written.",
	KindOdooRequest:        "An Odoo call failed while reading records.",
	KindTargetMissing:      "The Odoo task or ticket linked from Jira does not exist (anymore).",
	KindEmployeeFallback:   "No Odoo employee matched the Tempo author; the fallback employee was booked. Complete the employee mapping.",
	KindEmployeeUnresolved: "No Odoo employee matched the Tempo author and no fallback employee is configured.",
	KindOdooPermission:     "The Odoo user lacks rights to create timesheet lines.",
	KindOdooCreate:         "Creating the timesheet line in Odoo failed.",
	KindUnexpected:         "An unexpected failure interrupted processing of a single worklog.",
}

// Explain returns the operator hint for an error kind.
func Explain(kind string) string {
	if text, ok := kindExplanations[kind]; ok {
		return text
	}
	return "Unclassified error."
}

type summaryView struct {
	Generated    time.Time
	SessionStart time.Time
	Records      []ErrorRecord
	Stats        worklog.Stats
}

func (v summaryView) Critical() []ErrorRecord { return filterSeverity(v.Records, SeverityCritical) }
func (v summaryView) Normal() []ErrorRecord   { return filterSeverity(v.Records, SeverityNormal) }

// Kinds lists each distinct kind once, in first-seen order.
func (v summaryView) Kinds() []string {
	seen := make(map[string]struct{}, len(v.Records))
	kinds := make([]string, 0, len(v.Records))
	for _, record := range v.Records {
		if _, ok := seen[record.Kind]; ok {
			continue
		}
		seen[record.Kind] = struct{}{}
		kinds = append(kinds, record.Kind)
	}
	return kinds
}

func filterSeverity(records []ErrorRecord, severity Severity) []ErrorRecord {
	out := make([]ErrorRecord, 0, len(records))
	for _, record := range records {
		if record.Severity == severity {
			out = append(out, record)
		}
	}
	return out
}

type criticalView struct {
	Time       time.Time
	Context    string
	Message    string
	ErrorType  string
	LogPath    string
	LogContent string
}

// WeeklyReport is the digest of the last days of sync sessions.
type WeeklyReport struct {
	From           time.Time
	To             time.Time
	Sessions       int
	FailedSessions int
	Created        int
	Skipped        int
	Errors         int
	Duplicates     int
	NoMapping      int
	HoursBooked    float64
	AvgDuration    time.Duration
	LastSession    time.Time
	Projects       []string
}

var funcs = template.FuncMap{
	"stamp":   func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"day":     func(t time.Time) string { return t.Format("2006-01-02") },
	"explain": Explain,
	"seconds": func(d time.Duration) string { return fmt.Sprintf("%.1fs", d.Seconds()) },
	"hours":   func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":    strings.Join,
}

var summaryTemplate = template.Must(template.New("summary").Funcs(funcs).Parse(`SYNC SESSION ERROR REPORT

Session started: {{stamp .SessionStart}}
Report generated: {{stamp .Generated}}

Total errors:    {{len .Records}}
Critical errors: {{len .Critical}}
Normal errors:   {{len .Normal}}

=== WHAT THESE MEAN ===
{{range .Kinds}}- {{.}}: {{explain .}}
{{end}}
{{- with .Critical}}
=== CRITICAL ===
{{range .}}[{{stamp .Timestamp}}] {{.Kind}} | {{.Context}}
    {{.Message}}
{{end}}{{end}}
{{- with .Normal}}
=== NORMAL ===
{{range .}}[{{stamp .Timestamp}}] {{.Kind}} | {{.Context}}
    {{.Message}}
{{end}}{{end}}
=== SESSION STATS ===
Created: {{.Stats.Created}}
Skipped: {{.Stats.Skipped}}
Errors:  {{.Stats.Errors}}
Duration: {{seconds .Stats.Duration}}

---
JIRA-Odoo Sync
`))

var criticalTemplate = template.Must(template.New("critical").Funcs(funcs).Parse(`CRITICAL ERROR

Time: {{stamp .Time}}
Context: {{.Context}}
Error: {{.ErrorType}}
Message: {{.Message}}
{{- if .LogPath}}

Session log: {{.LogPath}}{{end}}
{{- if .LogContent}}

=== SESSION LOG ===
{{.LogContent}}{{end}}

---
JIRA-Odoo Sync
`))

var weeklyTemplate = template.Must(template.New("weekly").Funcs(funcs).Parse(`JIRA-ODOO SYNC - WEEKLY REPORT

Report period: {{day .From}} to {{day .To}}

=== SYNC STATISTICS ===
Sessions:             {{.Sessions}}
Failed sessions:      {{.FailedSessions}}
Timesheets created:   {{.Created}}
Hours booked:         {{hours .HoursBooked}}
Skipped:              {{.Skipped}}
Duplicates prevented: {{.Duplicates}}
Without Odoo link:    {{.NoMapping}}
Errors:               {{.Errors}}

=== RECENT ACTIVITY ===
Most recent sync: {{if .LastSession.IsZero}}no recent syncs{{else}}{{stamp .LastSession}}{{end}}
Average duration: {{seconds .AvgDuration}}
Jira projects:    {{if .Projects}}{{join .Projects ", "}}{{else}}-{{end}}

---
JIRA-Odoo Sync
`))

func renderSummary(view summaryView) (string, error) {
	return execute(summaryTemplate, view)
}

func renderCritical(view criticalView) (string, error) {
	return execute(criticalTemplate, view)
}

// RenderWeekly renders the weekly digest; the report command prints it when
// email is not configured.
func RenderWeekly(report WeeklyReport) (string, error) {
	projects := append([]string(nil), report.Projects...)
	sort.Strings(projects)
	report.Projects = projects
	return execute(weeklyTemplate, report)
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
