// Package jira reads issues from Jira Cloud and resolves the Odoo record an
// issue's time is booked on.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotFound     = errors.New("jira issue not found")
	ErrUnauthorized = errors.New("jira authentication failed")
)

type Config struct {
	BaseURL       string
	User          string
	APIToken      string
	LinkField     string
	ParentField   string
	EpicLinkField string
	Timeout       time.Duration
}

// Issue carries only the fields the resolver reads.
type Issue struct {
	ID        string
	Key       string
	Summary   string
	Link      string
	ParentKey string
}

type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type Client struct {
	http *resty.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.LinkField) == "" {
		cfg.LinkField = "customfield_10134"
	}
	if strings.TrimSpace(cfg.ParentField) == "" {
		cfg.ParentField = "parent"
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetBasicAuth(cfg.User, cfg.APIToken)
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{http: client, cfg: cfg}
}

type issueResponse struct {
	ID     string                     `json:"id"`
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// GetIssue fetches one issue by key or numeric id.
func (c *Client) GetIssue(ctx context.Context, key string) (Issue, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Issue{}, fmt.Errorf("issue key is required")
	}

	fields := []string{"summary", c.cfg.LinkField, c.cfg.ParentField}
	if epic := strings.TrimSpace(c.cfg.EpicLinkField); epic != "" {
		fields = append(fields, epic)
	}

	var payload issueResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("fields", strings.Join(fields, ",")).
		SetResult(&payload).
		Get("/rest/api/3/issue/" + url.PathEscape(key))
	if err != nil {
		return Issue{}, fmt.Errorf("get jira issue %s: %w", key, err)
	}
	if err := statusError("get jira issue "+key, resp); err != nil {
		return Issue{}, err
	}

	issue := Issue{
		ID:      payload.ID,
		Key:     payload.Key,
		Summary: stringField(payload.Fields["summary"]),
		Link:    strings.TrimSpace(stringField(payload.Fields[c.cfg.LinkField])),
	}
	if issue.Key == "" {
		issue.Key = key
	}
	issue.ParentKey = refKey(payload.Fields[c.cfg.ParentField])
	if issue.ParentKey == "" && c.cfg.EpicLinkField != "" {
		issue.ParentKey = refKey(payload.Fields[c.cfg.EpicLinkField])
	}
	return issue, nil
}

// IssueKeyByID looks up the key of an issue known only by its numeric id.
func (c *Client) IssueKeyByID(ctx context.Context, id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("issue id must be > 0")
	}

	var payload issueResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("fields", "summary").
		SetResult(&payload).
		Get("/rest/api/3/issue/" + strconv.FormatInt(id, 10))
	if err != nil {
		return "", fmt.Errorf("get jira issue %d: %w", id, err)
	}
	if err := statusError(fmt.Sprintf("get jira issue %d", id), resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.Key) == "" {
		return "", fmt.Errorf("jira issue %d has no key", id)
	}
	return payload.Key, nil
}

// Myself returns the authenticated user; used as the connectivity check.
func (c *Client) Myself(ctx context.Context) (User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&user).
		Get("/rest/api/3/myself")
	if err != nil {
		return User{}, fmt.Errorf("get jira myself: %w", err)
	}
	if err := statusError("get jira myself", resp); err != nil {
		return User{}, err
	}
	return user, nil
}

// AccountName returns the display name of a Jira account.
func (c *Client) AccountName(ctx context.Context, accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}

	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("accountId", accountID).
		SetResult(&user).
		Get("/rest/api/3/user")
	if err != nil {
		return "", fmt.Errorf("get jira user %s: %w", accountID, err)
	}
	if err := statusError("get jira user "+accountID, resp); err != nil {
		return "", err
	}
	return user.DisplayName, nil
}

func statusError(op string, resp *resty.Response) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case code < 200 || code > 299:
		return fmt.Errorf("%s: status %d: %s", op, code, snippet(resp.String()))
	}
	return nil
}

// stringField decodes a string value; anything else reads as empty.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

// refKey reads an issue reference that is either {"key": "..."} or a bare key.
func refKey(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var ref struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &ref); err == nil {
		return strings.TrimSpace(ref.Key)
	}
	return strings.TrimSpace(stringField(raw))
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		return body[:200] + "..."
	}
	return body
}
