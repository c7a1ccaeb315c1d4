package jira

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"worksync/notify"
	"worksync/worklog"
)

// ParseTargetRef reads the Odoo record from a link such as
// https://odoo.example.com/web#id=7346&model=project.task. The model defaults
// to project.task. A missing or invalid id, or an unknown model, is reported
// as a normal data-quality error.
func ParseTargetRef(rawURL string, reporter notify.Reporter) (worklog.TargetRef, bool) {
	idText, ok := linkParam(idParam, rawURL)
	if !ok {
		reportMalformed(reporter, rawURL, fmt.Errorf("no id in odoo link %q", rawURL))
		return worklog.TargetRef{}, false
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil || id <= 0 {
		reportMalformed(reporter, rawURL, fmt.Errorf("invalid id %q in odoo link %q", idText, rawURL))
		return worklog.TargetRef{}, false
	}

	model := worklog.ModelTask
	if value, ok := linkParam(modelParam, rawURL); ok && value != "" {
		model = worklog.Model(strings.ReplaceAll(strings.ReplaceAll(value, "%2E", "."), "%2e", "."))
	}
	if !model.Known() {
		reportMalformed(reporter, rawURL, fmt.Errorf("unsupported model %q in odoo link %q", model, rawURL))
		return worklog.TargetRef{}, false
	}

	return worklog.TargetRef{Model: model, ID: id}, true
}

// The key must not continue an identifier, so action_id= never counts as id=.
// Links are free text: anything else may precede the key.
var (
	idParam    = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])id=([^&#;?\s]*)`)
	modelParam = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])model=([^&#;?\s]*)`)
)

// linkParam returns the value of the first occurrence of the key.
func linkParam(pattern *regexp.Regexp, rawURL string) (string, bool) {
	match := pattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func reportMalformed(reporter notify.Reporter, rawURL string, err error) {
	if reporter != nil {
		reporter.Collect(notify.KindMalformedTarget, err, "odoo link "+rawURL, notify.SeverityNormal)
	}
}
