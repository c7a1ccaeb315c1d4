package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"worksync/internal/classify"
	"worksync/internal/logging"
	"worksync/storage"
	"worksync/worklog"
)

type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateEnriching  State = "enriching"
	StateProcessing State = "processing"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFatal      State = "fatal"
)

// Session is one sync pass. End must run on every exit path.
type Session struct {
	ID      string
	Started time.Time

	svc     *Service
	state   State
	stats   worklog.Stats
	log     *logrus.Entry
	logFile *logging.SessionLog
	ended   bool
}

// Begin opens the session log, starts the notifier session and registers
// the session in the ledger.
func (s *Service) Begin() *Session {
	session := &Session{
		ID:      s.newID(),
		Started: s.now(),
		svc:     s,
		state:   StateIdle,
	}
	session.log = s.log.WithField("session", session.ID)

	logFile, err := logging.OpenSession(s.log, s.opts.LogDir, session.Started)
	if err != nil {
		session.log.WithError(err).Warn("session log unavailable")
	}
	session.logFile = logFile

	s.notifier.StartSession()
	if s.ledger != nil {
		if err := s.ledger.BeginSession(session.ID, session.Started); err != nil {
			session.log.WithError(err).Warn("ledger: begin session failed")
		}
	}
	session.log.WithField("lookback_hours", s.opts.LookbackHours).Info("sync session started")
	return session
}

func (s *Session) State() State { return s.state }

func (s *Session) Stats() worklog.Stats { return s.stats }

// LogPath is the session log file, empty when none was opened.
func (s *Session) LogPath() string {
	if s.logFile == nil {
		return ""
	}
	return s.logFile.Path
}

func (s *Session) transition(next State) {
	s.log.WithFields(logrus.Fields{"from": string(s.state), "to": string(next)}).Debug("session state")
	s.state = next
}

func (s *Session) processing(index, total int) {
	if s.state != StateProcessing {
		s.transition(StateProcessing)
	}
	s.log.WithFields(logrus.Fields{"item": index + 1, "total": total}).Debug("processing worklog")
}

func (s *Session) record(outcome worklog.Outcome) {
	s.stats.Add(outcome)
	if s.svc.ledger == nil {
		return
	}
	if _, err := s.svc.ledger.RecordOutcome(s.ID, outcome, s.svc.now()); err != nil {
		s.log.WithError(err).WithField("worklog", outcome.Record.ID).Warn("ledger: record outcome failed")
	}
}

// End finalizes the session. Without cause the batched error summary is
// sent; with a cause the session is fatal and an immediate critical report
// carrying the session log goes out. The cause is returned unchanged.
func (s *Session) End(ctx context.Context, cause error) (worklog.Stats, error) {
	if s.ended {
		return s.stats, cause
	}
	s.ended = true

	// Reports still go out when the caller's context was cancelled.
	ctx = context.WithoutCancel(ctx)
	s.stats.Duration = s.svc.now().Sub(s.Started)

	status := storage.StatusSucceeded
	message := ""
	if cause == nil {
		s.transition(StateFinalizing)
		if err := s.svc.notifier.SendSessionSummary(ctx, s.stats); err != nil {
			s.log.WithError(err).Error("session summary not delivered")
		}
		s.transition(StateDone)
		s.log.WithFields(logrus.Fields{
			"created":  s.stats.Created,
			"skipped":  s.stats.Skipped,
			"errors":   s.stats.Errors,
			"duration": s.stats.Duration.String(),
		}).Info("sync session finished")
	} else {
		s.transition(StateFatal)
		status = storage.StatusFailed
		message = cause.Error()
		s.log.WithError(cause).WithField("class", string(classify.Error(cause))).Error("sync session failed")
		if err := s.svc.notifier.SendImmediateCritical(ctx, cause, "sync session "+s.ID, s.LogPath()); err != nil {
			s.log.WithError(err).Error("critical notification not delivered")
		}
	}

	if s.svc.ledger != nil {
		if err := s.svc.ledger.FinishSession(s.ID, s.svc.now(), s.stats, status, message); err != nil {
			s.log.WithError(err).Warn("ledger: finish session failed")
		}
	}
	if err := s.logFile.Close(); err != nil {
		s.log.WithError(err).Warn("close session log")
	}
	return s.stats, cause
}
