package output

import (
	"fmt"
	"sort"

	"worksync/internal/timeutil"
	"worksync/storage"
	"worksync/worklog"
)

// DailySummary totals one author's outcomes for one work date. Hours only
// count created timesheet lines.
type DailySummary struct {
	Date         string
	Author       string
	BookedHours  float64
	Created      int
	Skipped      int
	Errors       int
	WorklogCount int
}

func BuildDailySummaries(rows []storage.OutcomeRow) []DailySummary {
	if len(rows) == 0 {
		return []DailySummary{}
	}

	type dayAuthor struct {
		date   string
		author string
	}
	byKey := make(map[dayAuthor]*DailySummary)
	for _, row := range rows {
		key := dayAuthor{date: row.WorkDate, author: row.Author}
		summary, ok := byKey[key]
		if !ok {
			summary = &DailySummary{Date: row.WorkDate, Author: row.Author}
			byKey[key] = summary
		}
		summary.WorklogCount++
		switch {
		case row.Kind == worklog.OutcomeCreated:
			summary.Created++
			summary.BookedHours += row.Hours
		case row.Kind == worklog.OutcomeFailed:
			summary.Errors++
		default:
			summary.Skipped++
		}
	}

	summaries := make([]DailySummary, 0, len(byKey))
	for _, summary := range byKey {
		summary.BookedHours = timeutil.RoundHours(summary.BookedHours)
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Date == summaries[j].Date {
			return summaries[i].Author < summaries[j].Author
		}
		return summaries[i].Date < summaries[j].Date
	})
	return summaries
}

func WriteDailySummaries(path, format string, summaries []DailySummary) error {
	switch normalizeFormat(format) {
	case "csv":
		return writeDailySummariesCSV(path, summaries)
	case "excel", "xlsx":
		return writeDailySummariesExcel(path, summaries)
	default:
		return fmt.Errorf("unsupported output format for daily summaries: %s", format)
	}
}
