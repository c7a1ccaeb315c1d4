// Package odoo books timesheet lines in Odoo over its JSON-RPC endpoint.
package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"worksync/internal/classify"
	"worksync/notify"
	"worksync/worklog"
)

const (
	timesheetModel = "account.analytic.line"
	employeeModel  = "hr.employee"
)

var (
	ErrNotConnected  = errors.New("odoo connection unavailable")
	ErrTargetMissing = errors.New("odoo target not found")
)

type Config struct {
	URL                string
	DB                 string
	Username           string
	Password           string
	EmployeeField      string
	FallbackEmployeeID int64
	WorklogIDField     string
	Timeout            time.Duration
}

// Author identifies the person a worklog is booked for.
type Author struct {
	AccountID string
	Email     string
	Name      string
}

// Entry is one timesheet line to create.
type Entry struct {
	Target         worklog.TargetRef
	IssueKey       string
	Hours          float64
	Description    string
	AuthorName     string
	Date           string
	IdempotencyKey string
	EmployeeID     int64
}

type Client struct {
	http     *resty.Client
	cfg      Config
	reporter notify.Reporter
	log      logrus.FieldLogger

	attempted bool
	uid       int64
	employees map[string]int64
}

func NewClient(cfg Config, reporter notify.Reporter, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if strings.TrimSpace(cfg.WorklogIDField) == "" {
		cfg.WorklogIDField = "x_jira_worklog_id"
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.URL), "/"))
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:      client,
		cfg:       cfg,
		reporter:  reporter,
		log:       log,
		employees: make(map[string]int64),
	}
}

// Connect authenticates once per client. A failed attempt is reported
// critical and is not retried; later calls keep returning false.
func (c *Client) Connect(ctx context.Context) bool {
	if c.attempted {
		return c.uid > 0
	}
	c.attempted = true

	var raw json.RawMessage
	err := c.call(ctx, "common", "authenticate", []any{c.cfg.DB, c.cfg.Username, c.cfg.Password, map[string]any{}}, &raw)
	if err == nil {
		var uid int64
		if json.Unmarshal(raw, &uid) != nil || uid <= 0 {
			err = fmt.Errorf("odoo authentication failed for user %s on db %s", c.cfg.Username, c.cfg.DB)
		} else {
			c.uid = uid
		}
	}
	if err != nil {
		c.report(notify.KindOdooConnect, err, "odoo connect", notify.SeverityCritical)
		return false
	}

	c.log.WithField("uid", c.uid).Info("connected to odoo")
	return true
}

// TimesheetExists reports whether a line already carries the idempotency key.
// Lookup failures are reported critical and returned so the caller does not
// create a possible duplicate.
func (c *Client) TimesheetExists(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}
	if !c.Connect(ctx) {
		return false, ErrNotConnected
	}

	var rows []map[string]any
	err := c.executeKW(ctx, timesheetModel, "search_read",
		[]any{[]any{[]any{c.cfg.WorklogIDField, "=", key}}},
		map[string]any{"fields": []string{"id"}, "limit": 1},
		&rows,
	)
	if err != nil {
		c.report(notify.KindOdooRequest, err, "duplicate check for worklog "+key, notify.SeverityCritical)
		return false, err
	}
	return len(rows) > 0, nil
}

// ResolveEmployee finds the employee for an author by account id, then
// email, then name. Matches are cached for the client's lifetime. Without a
// match the configured fallback employee is used and reported; fallback
// results are not cached so each use stays visible. A failed lookup is
// reported critical and resolves nothing, never the fallback.
func (c *Client) ResolveEmployee(ctx context.Context, author Author) (int64, bool) {
	if !c.Connect(ctx) {
		return 0, false
	}

	cacheKey := employeeCacheKey(author)
	if id, ok := c.employees[cacheKey]; ok {
		return id, true
	}

	type lookup struct {
		by     string
		domain []any
	}
	var lookups []lookup
	if field := strings.TrimSpace(c.cfg.EmployeeField); field != "" && author.AccountID != "" {
		lookups = append(lookups, lookup{by: field, domain: []any{[]any{field, "=", author.AccountID}}})
	}
	if author.Email != "" {
		lookups = append(lookups, lookup{by: "work_email", domain: []any{[]any{"work_email", "=ilike", author.Email}}})
	}
	if author.Name != "" {
		lookups = append(lookups, lookup{by: "name", domain: []any{[]any{"name", "ilike", author.Name}}})
	}

	for _, l := range lookups {
		var ids []int64
		if err := c.executeKW(ctx, employeeModel, "search", []any{l.domain}, map[string]any{"limit": 1}, &ids); err != nil {
			// A lookup error must never fall through to the fallback employee.
			c.report(notify.KindOdooRequest, err, "employee lookup by "+l.by+" for "+authorLabel(author), notify.SeverityCritical)
			return 0, false
		}
		if len(ids) > 0 && ids[0] > 0 {
			if cacheKey != "" {
				c.employees[cacheKey] = ids[0]
			}
			c.log.WithFields(logrus.Fields{"employee": ids[0], "by": l.by}).Debug("employee resolved")
			return ids[0], true
		}
	}

	where := "employee for " + authorLabel(author)
	if c.cfg.FallbackEmployeeID > 0 {
		c.report(notify.KindEmployeeFallback,
			fmt.Errorf("no employee matched %s, booking on fallback employee %d", authorLabel(author), c.cfg.FallbackEmployeeID),
			where, notify.SeverityNormal)
		return c.cfg.FallbackEmployeeID, true
	}
	c.report(notify.KindEmployeeUnresolved, fmt.Errorf("no employee matched %s", authorLabel(author)), where, notify.SeverityNormal)
	return 0, false
}

// CreateTimesheet reads the target task or ticket and creates the line on it.
// A missing target is reported as a normal error and returns ErrTargetMissing.
func (c *Client) CreateTimesheet(ctx context.Context, entry Entry) (int64, error) {
	if !c.Connect(ctx) {
		return 0, ErrNotConnected
	}
	if !entry.Target.Valid() {
		return 0, fmt.Errorf("invalid odoo target %s", entry.Target)
	}
	where := fmt.Sprintf("timesheet for %s on %s", entry.IssueKey, entry.Target)

	projectID, err := c.readTarget(ctx, entry.Target)
	if err != nil {
		if errors.Is(err, ErrTargetMissing) {
			c.report(notify.KindTargetMissing, err, where, notify.SeverityNormal)
		} else {
			c.report(notify.KindOdooRequest, err, where, notify.SeverityCritical)
		}
		return 0, err
	}

	values := map[string]any{
		"name":        Description(entry.Description, entry.IssueKey, entry.AuthorName),
		"unit_amount": entry.Hours,
		"date":        entry.Date,
		"employee_id": entry.EmployeeID,
	}
	if entry.Target.Model == worklog.ModelTicket {
		values["helpdesk_ticket_id"] = entry.Target.ID
	} else {
		values["task_id"] = entry.Target.ID
	}
	if projectID > 0 {
		values["project_id"] = projectID
	}
	if key := strings.TrimSpace(entry.IdempotencyKey); key != "" {
		values[c.cfg.WorklogIDField] = key
	}

	var raw json.RawMessage
	if err := c.executeKW(ctx, timesheetModel, "create", []any{values}, nil, &raw); err != nil {
		kind := notify.KindOdooCreate
		if classify.IsPermission(err) {
			kind = notify.KindOdooPermission
		}
		c.report(kind, err, where, notify.SeverityCritical)
		return 0, err
	}
	lineID, err := createdID(raw)
	if err != nil {
		c.report(notify.KindOdooCreate, err, where, notify.SeverityCritical)
		return 0, err
	}

	c.log.WithFields(logrus.Fields{
		"line":   lineID,
		"target": entry.Target.String(),
		"hours":  entry.Hours,
	}).Info("timesheet line created")
	return lineID, nil
}

// readTarget returns the project of a task. Tickets carry no project link.
func (c *Client) readTarget(ctx context.Context, target worklog.TargetRef) (int64, error) {
	fields := []string{"name"}
	if target.Model == worklog.ModelTask {
		fields = append(fields, "project_id")
	}

	var rows []map[string]json.RawMessage
	err := c.executeKW(ctx, string(target.Model), "read",
		[]any{[]int64{target.ID}},
		map[string]any{"fields": fields},
		&rows,
	)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Missing() {
			return 0, fmt.Errorf("%s: %w", target, ErrTargetMissing)
		}
		return 0, fmt.Errorf("read %s: %w", target, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%s: %w", target, ErrTargetMissing)
	}
	return many2oneID(rows[0]["project_id"]), nil
}

func (c *Client) report(kind string, err error, where string, severity notify.Severity) {
	if c.reporter != nil {
		c.reporter.Collect(kind, err, where, severity)
	}
}

// Description is the line text: the worklog comment, or "Work on <key>" when
// empty, followed by the Jira author.
func Description(comment, issueKey, author string) string {
	text := strings.TrimSpace(comment)
	if text == "" {
		text = "Work on " + issueKey
	}
	if author = strings.TrimSpace(author); author != "" && author != "Unknown" {
		text = fmt.Sprintf("%s (by %s)", text, author)
	}
	return text
}

func employeeCacheKey(author Author) string {
	switch {
	case author.AccountID != "":
		return "account:" + author.AccountID
	case author.Email != "":
		return "email:" + strings.ToLower(author.Email)
	case author.Name != "":
		return "name:" + strings.ToLower(author.Name)
	default:
		return ""
	}
}

func authorLabel(author Author) string {
	for _, value := range []string{author.Name, author.Email, author.AccountID} {
		if value != "" {
			return value
		}
	}
	return "unknown author"
}
