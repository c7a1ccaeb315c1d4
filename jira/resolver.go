package jira

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"worksync/notify"
	"worksync/worklog"
)

type IssueGetter interface {
	GetIssue(ctx context.Context, key string) (Issue, error)
}

// Resolver finds the Odoo link for an issue, directly or through its parent.
type Resolver struct {
	issues   IssueGetter
	reporter notify.Reporter
	log      logrus.FieldLogger
}

func NewResolver(issues IssueGetter, reporter notify.Reporter, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{issues: issues, reporter: reporter, log: log}
}

// Resolve returns nil when neither the issue nor its parent carries a link,
// or when the lookup failed. Failures other than 404 are reported critical.
// Only one parent level is followed and a direct link always wins.
func (r *Resolver) Resolve(ctx context.Context, key string) *worklog.Mapping {
	issue, ok := r.fetch(ctx, key)
	if !ok {
		return nil
	}

	if issue.Link != "" {
		r.log.WithFields(logrus.Fields{"issue": issue.Key, "link": issue.Link}).Debug("odoo link found on issue")
		return &worklog.Mapping{
			IssueKey:  issue.Key,
			TargetURL: issue.Link,
			Source:    worklog.SourceDirect,
			Title:     issue.Summary,
		}
	}

	if issue.ParentKey == "" {
		r.log.WithField("issue", issue.Key).Debug("no odoo link and no parent")
		return nil
	}

	parent, ok := r.fetch(ctx, issue.ParentKey)
	if !ok {
		return nil
	}
	if parent.Link == "" {
		r.log.WithFields(logrus.Fields{"issue": issue.Key, "parent": parent.Key}).Debug("no odoo link on issue or parent")
		return nil
	}

	r.log.WithFields(logrus.Fields{"issue": issue.Key, "parent": parent.Key, "link": parent.Link}).Debug("odoo link inherited from parent")
	return &worklog.Mapping{
		IssueKey:  issue.Key,
		TargetURL: parent.Link,
		Source:    worklog.SourceParent,
		ParentKey: parent.Key,
		Title:     issue.Summary,
	}
}

func (r *Resolver) fetch(ctx context.Context, key string) (Issue, bool) {
	issue, err := r.issues.GetIssue(ctx, key)
	switch {
	case err == nil:
		return issue, true
	case errors.Is(err, ErrNotFound):
		r.log.WithField("issue", key).Warn("jira issue not found, skipping")
	case errors.Is(err, ErrUnauthorized):
		r.report(notify.KindJiraAuth, err, "jira issue "+key)
	default:
		r.report(notify.KindJiraRequest, err, "jira issue "+key)
	}
	return Issue{}, false
}

func (r *Resolver) report(kind string, err error, where string) {
	if r.reporter != nil {
		r.reporter.Collect(kind, err, where, notify.SeverityCritical)
	}
}
