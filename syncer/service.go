// Package syncer runs sync sessions: it pulls Tempo worklogs, resolves their
// Odoo target through Jira and books one timesheet line per worklog.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"worksync/internal/classify"
	"worksync/internal/timeutil"
	"worksync/jira"
	"worksync/notify"
	"worksync/odoo"
	"worksync/worklog"
)

type Source interface {
	FetchWorklogs(ctx context.Context, lookbackHours int) []worklog.Record
	Enrich(ctx context.Context, record worklog.Record) (worklog.Record, bool)
	Ping(ctx context.Context) error
}

type Resolver interface {
	Resolve(ctx context.Context, key string) *worklog.Mapping
}

type Target interface {
	Connect(ctx context.Context) bool
	TimesheetExists(ctx context.Context, key string) (bool, error)
	ResolveEmployee(ctx context.Context, author odoo.Author) (int64, bool)
	CreateTimesheet(ctx context.Context, entry odoo.Entry) (int64, error)
}

type Notifier interface {
	notify.Reporter
	StartSession()
	SendSessionSummary(ctx context.Context, stats worklog.Stats) error
	SendImmediateCritical(ctx context.Context, cause error, where, logPath string) error
}

// Ledger persists sessions and outcomes. Optional.
type Ledger interface {
	BeginSession(id string, startedAt time.Time) error
	FinishSession(id string, finishedAt time.Time, stats worklog.Stats, status, errMessage string) error
	RecordOutcome(sessionID string, outcome worklog.Outcome, recordedAt time.Time) (int64, error)
}

// Identity is the Jira connectivity check used by Check.
type Identity interface {
	Myself(ctx context.Context) (jira.User, error)
}

type Deps struct {
	Source   Source
	Resolver Resolver
	Target   Target
	Notifier Notifier
	Ledger   Ledger
	Identity Identity
	Logger   *logrus.Logger
}

type Options struct {
	LookbackHours int
	// LogDir receives one log file per session; empty disables session files.
	LogDir string
}

type Service struct {
	source   Source
	resolver Resolver
	target   Target
	notifier Notifier
	ledger   Ledger
	identity Identity
	log      *logrus.Logger
	opts     Options

	now   func() time.Time
	newID func() string
}

func New(deps Deps, opts Options) *Service {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.LookbackHours <= 0 {
		opts.LookbackHours = 24
	}
	return &Service{
		source:   deps.Source,
		resolver: deps.Resolver,
		target:   deps.Target,
		notifier: deps.Notifier,
		ledger:   deps.Ledger,
		identity: deps.Identity,
		log:      log,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run performs one sync pass. It returns an error only when the session
// itself failed; per-worklog failures are collected and reported.
func (s *Service) Run(ctx context.Context) (stats worklog.Stats, err error) {
	session := s.Begin()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync session panicked: %v", r)
		}
		stats, err = session.End(ctx, err)
	}()

	session.transition(StateFetching)
	raw := s.source.FetchWorklogs(ctx, s.opts.LookbackHours)
	if err := ctx.Err(); err != nil {
		return worklog.Stats{}, fmt.Errorf("fetch worklogs: %w", err)
	}
	if len(raw) == 0 {
		session.log.Info("no worklogs in lookback window")
		return worklog.Stats{}, nil
	}

	session.transition(StateEnriching)
	records := make([]worklog.Record, 0, len(raw))
	for _, record := range raw {
		enriched, ok := s.source.Enrich(ctx, record)
		if !ok {
			continue
		}
		records = append(records, enriched)
	}
	if err := ctx.Err(); err != nil {
		return worklog.Stats{}, fmt.Errorf("enrich worklogs: %w", err)
	}
	session.log.WithFields(logrus.Fields{"fetched": len(raw), "enriched": len(records)}).Info("worklogs ready")

	for i, record := range records {
		session.processing(i, len(records))
		outcome := s.process(ctx, session.log, record)
		session.record(outcome)
	}
	return session.stats, nil
}

// process syncs one worklog. Panics are contained here so one bad record
// never aborts the batch.
func (s *Service) process(ctx context.Context, log *logrus.Entry, record worklog.Record) (outcome worklog.Outcome) {
	log = log.WithFields(logrus.Fields{"worklog": record.ID, "issue": record.IssueKey})
	outcome = worklog.Outcome{Record: record}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing worklog %s: %v", record.ID, r)
			s.notifier.Collect(notify.KindUnexpected, err, "worklog "+record.ID, notify.SeverityCritical)
			outcome.Kind = worklog.OutcomeFailed
			outcome.Err = err
		}
		log.WithField("outcome", string(outcome.Kind)).Info("worklog processed")
	}()

	if key := record.IdempotencyKey(); key != "" {
		exists, err := s.target.TimesheetExists(ctx, key)
		if err != nil {
			outcome.Kind = worklog.OutcomeFailed
			outcome.Err = err
			return outcome
		}
		if exists {
			outcome.Kind = worklog.OutcomeDuplicate
			return outcome
		}
	}

	mapping := s.resolver.Resolve(ctx, record.IssueKey)
	if mapping == nil {
		log.Debug("no odoo link on issue or parent")
		outcome.Kind = worklog.OutcomeNoMapping
		return outcome
	}
	log = log.WithFields(logrus.Fields{"source": string(mapping.Source), "title": mapping.Title})

	target, ok := jira.ParseTargetRef(mapping.TargetURL, s.notifier)
	if !ok {
		outcome.Kind = worklog.OutcomeUnresolvedID
		return outcome
	}
	outcome.Target = target
	outcome.Hours = timeutil.HoursFor(record.TimeSpentSeconds)

	employeeID, ok := s.target.ResolveEmployee(ctx, odoo.Author{
		AccountID: record.AuthorAccountID,
		Email:     record.AuthorEmail,
		Name:      record.AuthorName,
	})
	if !ok {
		outcome.Kind = worklog.OutcomeNoEmployee
		return outcome
	}

	lineID, err := s.target.CreateTimesheet(ctx, odoo.Entry{
		Target:         target,
		IssueKey:       record.IssueKey,
		Hours:          outcome.Hours,
		Description:    record.Description,
		AuthorName:     record.AuthorName,
		Date:           record.WorkDate(s.now()),
		IdempotencyKey: record.IdempotencyKey(),
		EmployeeID:     employeeID,
	})
	switch {
	case errors.Is(err, odoo.ErrTargetMissing):
		outcome.Kind = worklog.OutcomeTargetMissing
		outcome.Err = err
	case err != nil:
		outcome.Kind = worklog.OutcomeFailed
		outcome.Err = err
		log.WithField("class", string(classify.Error(err))).Warn("timesheet creation failed")
	default:
		outcome.Kind = worklog.OutcomeCreated
		outcome.LineID = lineID
	}
	return outcome
}

// Check verifies connectivity to Odoo, Tempo and Jira without writing.
func (s *Service) Check(ctx context.Context) error {
	var errs []error

	if s.target.Connect(ctx) {
		s.log.Info("odoo connection ok")
	} else {
		errs = append(errs, errors.New("odoo connection failed"))
	}

	if err := s.source.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tempo: %w", err))
	} else {
		s.log.Info("tempo connection ok")
	}

	if s.identity != nil {
		user, err := s.identity.Myself(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("jira: %w", err))
		} else {
			s.log.WithField("user", user.DisplayName).Info("jira connection ok")
		}
	}

	for _, err := range errs {
		s.log.WithField("class", string(classify.Error(err))).Error(err.Error())
	}
	return errors.Join(errs...)
}
