// Package tempo fetches worklogs from the Tempo Cloud REST API.
package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"worksync/internal/timeutil"
	"worksync/notify"
	"worksync/worklog"
)

const defaultBaseURL = "https://api.tempo.io/4"

var ErrUnauthorized = errors.New("tempo authentication failed")

type Config struct {
	BaseURL   string
	APIToken  string
	PageLimit int
	Timeout   time.Duration
}

// IssueLookup is the Jira side of enrichment.
type IssueLookup interface {
	IssueKeyByID(ctx context.Context, id int64) (string, error)
	AccountName(ctx context.Context, accountID string) (string, error)
}

type Client struct {
	http     *resty.Client
	limit    int
	issues   IssueLookup
	reporter notify.Reporter
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewClient(cfg Config, issues IssueLookup, reporter notify.Reporter, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = 1000
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetAuthToken(cfg.APIToken)
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:     client,
		limit:    limit,
		issues:   issues,
		reporter: reporter,
		log:      log,
		now:      time.Now,
	}
}

type worklogsResponse struct {
	Metadata pageMetadata  `json:"metadata"`
	Results  []worklogItem `json:"results"`
}

type pageMetadata struct {
	Count int    `json:"count"`
	Limit int    `json:"limit"`
	Next  string `json:"next"`
}

type worklogItem struct {
	TempoWorklogID   json.Number `json:"tempoWorklogId"`
	TimeSpentSeconds int         `json:"timeSpentSeconds"`
	StartDate        string      `json:"startDate"`
	Description      string      `json:"description"`
	Issue            issueRef    `json:"issue"`
	Author           authorRef   `json:"author"`
}

type issueRef struct {
	ID  json.Number `json:"id"`
	Key string      `json:"key"`
}

type authorRef struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress"`
}

// FetchWorklogs returns every author's worklogs in the lookback window.
// Only one page is read; anything beyond the page limit is not fetched.
// Failures are reported critical and yield an empty result.
func (c *Client) FetchWorklogs(ctx context.Context, lookbackHours int) []worklog.Record {
	from, to := timeutil.Window(c.now(), lookbackHours)
	log := c.log.WithFields(logrus.Fields{
		"from":  from.Format(timeutil.DayLayout),
		"to":    to.Format(timeutil.DayLayout),
		"limit": c.limit,
	})
	log.Info("fetching tempo worklogs")

	payload, err := c.list(ctx, from, to, c.limit)
	if err != nil {
		kind := notify.KindTempoRequest
		if errors.Is(err, ErrUnauthorized) {
			kind = notify.KindTempoAuth
		}
		c.report(kind, err, "tempo worklogs")
		return nil
	}

	if payload.Metadata.Next != "" {
		log.WithField("returned", len(payload.Results)).Warn("tempo result truncated at page limit")
	}

	records := make([]worklog.Record, 0, len(payload.Results))
	for _, item := range payload.Results {
		records = append(records, item.record())
	}
	log.WithField("count", len(records)).Info("tempo worklogs fetched")
	return records
}

// Enrich fills in the issue key of a worklog that references its issue by id
// only. A failed lookup is reported critical and drops the record. The author
// name is completed on a best effort basis.
func (c *Client) Enrich(ctx context.Context, record worklog.Record) (worklog.Record, bool) {
	if record.IssueKey == "" {
		if record.IssueID <= 0 {
			c.report(notify.KindEnrich, fmt.Errorf("worklog %s has neither issue key nor issue id", record.ID), "tempo worklog "+record.ID)
			return worklog.Record{}, false
		}
		key, err := c.issues.IssueKeyByID(ctx, record.IssueID)
		if err != nil {
			c.report(notify.KindEnrich, err, "tempo worklog "+record.ID)
			return worklog.Record{}, false
		}
		record.IssueKey = key
	}

	if record.AuthorName == "" && record.AuthorAccountID != "" {
		name, err := c.issues.AccountName(ctx, record.AuthorAccountID)
		if err != nil {
			c.log.WithError(err).WithField("account", record.AuthorAccountID).Debug("author name lookup failed")
		} else {
			record.AuthorName = name
		}
	}
	return record, true
}

// Ping checks the token against today's worklogs without reading them.
func (c *Client) Ping(ctx context.Context) error {
	today := timeutil.StartOfDay(c.now())
	_, err := c.list(ctx, today, today, 1)
	return err
}

func (c *Client) list(ctx context.Context, from, to time.Time, limit int) (worklogsResponse, error) {
	var payload worklogsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":  from.Format(timeutil.DayLayout),
			"to":    to.Format(timeutil.DayLayout),
			"limit": strconv.Itoa(limit),
		}).
		SetResult(&payload).
		Get("/worklogs")
	if err != nil {
		return worklogsResponse{}, fmt.Errorf("get tempo worklogs: %w", err)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized:
		return worklogsResponse{}, fmt.Errorf("get tempo worklogs: %w", ErrUnauthorized)
	case code < 200 || code > 299:
		return worklogsResponse{}, fmt.Errorf("get tempo worklogs: status %d", code)
	}
	return payload, nil
}

func (c *Client) report(kind string, err error, where string) {
	if c.reporter != nil {
		c.reporter.Collect(kind, err, where, notify.SeverityCritical)
	}
}

func (item worklogItem) record() worklog.Record {
	issueID, _ := item.Issue.ID.Int64()
	return worklog.Record{
		ID:               item.TempoWorklogID.String(),
		IssueID:          issueID,
		IssueKey:         strings.TrimSpace(item.Issue.Key),
		TimeSpentSeconds: item.TimeSpentSeconds,
		AuthorAccountID:  item.Author.AccountID,
		AuthorName:       item.Author.DisplayName,
		AuthorEmail:      item.Author.Email,
		StartDate:        item.StartDate,
		Description:      item.Description,
	}
}
