package output

import (
	"fmt"
	"strconv"
)

var dailyHeaders = []string{"Date", "Author", "BookedHours", "Created", "Skipped", "Errors", "WorklogCount"}

func dailyValues(summary DailySummary) []string {
	return []string{
		summary.Date,
		summary.Author,
		fmt.Sprintf("%.2f", summary.BookedHours),
		strconv.Itoa(summary.Created),
		strconv.Itoa(summary.Skipped),
		strconv.Itoa(summary.Errors),
		strconv.Itoa(summary.WorklogCount),
	}
}

func writeDailySummariesCSV(path string, summaries []DailySummary) error {
	records := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		records = append(records, dailyValues(summary))
	}
	return writeCSV(path, dailyHeaders, records)
}
