package syncer

import (
	"strings"
	"time"

	"worksync/notify"
	"worksync/storage"
	"worksync/worklog"
)

// BuildWeeklyReport folds ledger rows into the weekly digest. Sessions are
// those started in the period; outcomes are those with work dates in it.
func BuildWeeklyReport(from, to time.Time, sessions []storage.SessionRow, outcomes []storage.OutcomeRow) notify.WeeklyReport {
	report := notify.WeeklyReport{From: from, To: to}

	var total time.Duration
	finished := 0
	for _, session := range sessions {
		report.Sessions++
		if session.Status == storage.StatusFailed {
			report.FailedSessions++
		}
		report.Created += session.Stats.Created
		report.Skipped += session.Stats.Skipped
		report.Errors += session.Stats.Errors
		if session.Status != storage.StatusRunning {
			total += session.Stats.Duration
			finished++
		}
		if session.StartedAt.After(report.LastSession) {
			report.LastSession = session.StartedAt
		}
	}
	if finished > 0 {
		report.AvgDuration = total / time.Duration(finished)
	}

	projects := make(map[string]struct{})
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case worklog.OutcomeCreated:
			report.HoursBooked += outcome.Hours
			if project := projectOf(outcome.IssueKey); project != "" {
				projects[project] = struct{}{}
			}
		case worklog.OutcomeDuplicate:
			report.Duplicates++
		case worklog.OutcomeNoMapping:
			report.NoMapping++
		}
	}
	for project := range projects {
		report.Projects = append(report.Projects, project)
	}
	return report
}

func projectOf(issueKey string) string {
	project, _, ok := strings.Cut(issueKey, "-")
	if !ok {
		return ""
	}
	return project
}
