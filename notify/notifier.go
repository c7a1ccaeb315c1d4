// Package notify collects classified sync errors during a session and mails
// them to operators as one consolidated report.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"worksync/worklog"
)

type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityCritical Severity = "critical"
)

// ErrorRecord is one collected error.
type ErrorRecord struct {
	Timestamp time.Time
	Kind      string
	Message   string
	Context   string
	Severity  Severity
}

// Reporter receives classified errors from the remote clients. Collecting
// never blocks on I/O.
type Reporter interface {
	Collect(kind string, err error, where string, severity Severity)
}

// Message is one outgoing notification.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers messages over the configured transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	Enabled       bool
	Host          string
	Port          int
	From          string
	Password      string
	To            string
	SubjectPrefix string
}

// Configured reports whether sends are allowed. A partial transport
// configuration counts as disabled.
func (c Config) Configured() bool {
	return c.Enabled &&
		strings.TrimSpace(c.Host) != "" &&
		strings.TrimSpace(c.From) != "" &&
		strings.TrimSpace(c.Password) != "" &&
		strings.TrimSpace(c.To) != ""
}

const maxLogAttachmentBytes = 64 * 1024

type Notifier struct {
	cfg    Config
	sender Sender
	log    logrus.FieldLogger
	now    func() time.Time

	sessionStart time.Time
	records      []ErrorRecord
}

func New(cfg Config, sender Sender, log logrus.FieldLogger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if strings.TrimSpace(cfg.SubjectPrefix) == "" {
		cfg.SubjectPrefix = "[JIRA-SYNC]"
	}
	return &Notifier{
		cfg:    cfg,
		sender: sender,
		log:    log,
		now:    time.Now,
	}
}

// StartSession drops anything left from a previous session.
func (n *Notifier) StartSession() {
	n.records = nil
	n.sessionStart = n.now()
}

func (n *Notifier) Collect(kind string, err error, where string, severity Severity) {
	if severity != SeverityCritical {
		severity = SeverityNormal
	}
	message := "<nil>"
	if err != nil {
		message = err.Error()
	}
	record := ErrorRecord{
		Timestamp: n.now(),
		Kind:      kind,
		Message:   message,
		Context:   where,
		Severity:  severity,
	}
	n.records = append(n.records, record)

	entry := n.log.WithFields(logrus.Fields{
		"kind":     kind,
		"context":  where,
		"severity": string(severity),
	})
	if severity == SeverityCritical {
		entry.Error(message)
		return
	}
	entry.Warn(message)
}

// Records returns a copy of the errors collected so far.
func (n *Notifier) Records() []ErrorRecord {
	return append([]ErrorRecord(nil), n.records...)
}

func (n *Notifier) Counts() (critical, normal int) {
	for _, record := range n.records {
		if record.Severity == SeverityCritical {
			critical++
		} else {
			normal++
		}
	}
	return critical, normal
}

// SendSessionSummary mails all collected errors in one message. Nothing is
// sent when the session collected no errors. The buffer is cleared whether
// or not the send succeeds.
func (n *Notifier) SendSessionSummary(ctx context.Context, stats worklog.Stats) error {
	records := n.records
	n.records = nil

	if len(records) == 0 {
		n.log.Debug("no errors collected, nothing to report")
		return nil
	}
	if !n.cfg.Configured() {
		n.log.WithField("errors", len(records)).Debug("email not configured, skipping session summary")
		return nil
	}

	body, err := renderSummary(summaryView{
		Generated:    n.now(),
		SessionStart: n.sessionStart,
		Records:      records,
		Stats:        stats,
	})
	if err != nil {
		return fmt.Errorf("render session summary: %w", err)
	}

	critical := 0
	for _, record := range records {
		if record.Severity == SeverityCritical {
			critical++
		}
	}
	subject := fmt.Sprintf("%s Sync errors: %d total, %d critical", n.cfg.SubjectPrefix, len(records), critical)
	if err := n.sender.Send(ctx, Message{Subject: subject, Body: body}); err != nil {
		n.log.WithError(err).Error("failed to send session summary")
		return fmt.Errorf("send session summary: %w", err)
	}
	n.log.WithField("errors", len(records)).Info("session summary sent")
	return nil
}

// SendImmediateCritical reports a session-fatal failure without touching the
// collection buffer. logPath may be empty.
func (n *Notifier) SendImmediateCritical(ctx context.Context, cause error, where, logPath string) error {
	if !n.cfg.Configured() {
		n.log.Debug("email not configured, skipping critical notification")
		return nil
	}
	if cause == nil {
		cause = errors.New("unknown failure")
	}

	body, err := renderCritical(criticalView{
		Time:       n.now(),
		Context:    where,
		Message:    cause.Error(),
		ErrorType:  fmt.Sprintf("%T", cause),
		LogPath:    logPath,
		LogContent: readLogTail(logPath, maxLogAttachmentBytes),
	})
	if err != nil {
		return fmt.Errorf("render critical notification: %w", err)
	}

	subject := fmt.Sprintf("%s CRITICAL - %s", n.cfg.SubjectPrefix, where)
	if err := n.sender.Send(ctx, Message{Subject: subject, Body: body}); err != nil {
		n.log.WithError(err).Error("failed to send critical notification")
		return fmt.Errorf("send critical notification: %w", err)
	}
	return nil
}

// SendWeeklyReport mails the ledger digest built by the report command.
func (n *Notifier) SendWeeklyReport(ctx context.Context, report WeeklyReport) error {
	if !n.cfg.Configured() {
		n.log.Debug("email not configured, skipping weekly report")
		return nil
	}
	body, err := RenderWeekly(report)
	if err != nil {
		return fmt.Errorf("render weekly report: %w", err)
	}
	subject := fmt.Sprintf("%s Weekly Report - %s", n.cfg.SubjectPrefix, report.To.Format("2006-01-02"))
	if err := n.sender.Send(ctx, Message{Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("send weekly report: %w", err)
	}
	return nil
}

func readLogTail(path string, limit int) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(content) > limit {
		start := len(content) - limit
		// Never start inside a multi-byte character.
		for start < len(content) && !utf8.RuneStart(content[start]) {
			start++
		}
		content = content[start:]
	}
	return string(content)
}
