package worklog

import (
	"fmt"
	"strings"
	"time"
)

// Record is one Tempo worklog as it moves through a sync pass.
type Record struct {
	ID               string
	IssueID          int64
	IssueKey         string
	TimeSpentSeconds int
	AuthorAccountID  string
	AuthorName       string
	AuthorEmail      string
	StartDate        string
	Description      string
}

// IdempotencyKey is the value stored on the created timesheet line to detect re-syncs.
func (r Record) IdempotencyKey() string {
	return strings.TrimSpace(r.ID)
}

// WorkDate returns the start date, falling back to today when the source left it empty.
func (r Record) WorkDate(now time.Time) string {
	if date := strings.TrimSpace(r.StartDate); date != "" {
		return date
	}
	return now.Format("2006-01-02")
}

type MappingSource string

const (
	SourceDirect MappingSource = "direct"
	SourceParent MappingSource = "parent"
)

// Mapping links a Jira issue to the Odoo record its time is booked on.
type Mapping struct {
	IssueKey  string
	TargetURL string
	Source    MappingSource
	ParentKey string
	Title     string
}

type Model string

const (
	ModelTask   Model = "project.task"
	ModelTicket Model = "helpdesk.ticket"
)

func (m Model) Known() bool {
	return m == ModelTask || m == ModelTicket
}

// TargetRef identifies an Odoo task or helpdesk ticket.
type TargetRef struct {
	Model Model
	ID    int64
}

func (r TargetRef) Valid() bool {
	return r.ID > 0 && r.Model.Known()
}

func (r TargetRef) String() string {
	return fmt.Sprintf("%s(%d)", r.Model, r.ID)
}

type OutcomeKind string

const (
	OutcomeCreated       OutcomeKind = "created"
	OutcomeDuplicate     OutcomeKind = "duplicate"
	OutcomeNoMapping     OutcomeKind = "no_mapping"
	OutcomeUnresolvedID  OutcomeKind = "unresolved_id"
	OutcomeTargetMissing OutcomeKind = "target_missing"
	OutcomeNoEmployee    OutcomeKind = "no_employee"
	OutcomeFailed        OutcomeKind = "failed"
)

// Outcome is the result of syncing one record.
type Outcome struct {
	Kind   OutcomeKind
	Record Record
	Target TargetRef
	LineID int64
	Hours  float64
	Err    error
}

func (o Outcome) Skipped() bool {
	switch o.Kind {
	case OutcomeDuplicate, OutcomeNoMapping, OutcomeUnresolvedID, OutcomeTargetMissing, OutcomeNoEmployee:
		return true
	default:
		return false
	}
}

// Stats summarizes one sync session.
type Stats struct {
	Created  int
	Skipped  int
	Errors   int
	Duration time.Duration
}

func (s *Stats) Add(outcome Outcome) {
	switch {
	case outcome.Kind == OutcomeCreated:
		s.Created++
	case outcome.Skipped():
		s.Skipped++
	default:
		s.Errors++
	}
}
