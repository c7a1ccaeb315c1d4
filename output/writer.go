package output

import (
	"fmt"
	"strings"

	"worksync/storage"
)

// Writer exports ledger outcomes one row per processed worklog.
type Writer interface {
	Write(path string, rows []storage.OutcomeRow) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

var outcomeHeaders = []string{"WorkDate", "WorklogID", "IssueKey", "Author", "Seconds", "Hours", "Outcome", "Target", "LineID", "Error", "SessionID", "RecordedAt"}

func outcomeValues(row storage.OutcomeRow) []string {
	target := ""
	if row.TargetModel != "" && row.TargetID > 0 {
		target = fmt.Sprintf("%s/%d", row.TargetModel, row.TargetID)
	}
	lineID := ""
	if row.LineID > 0 {
		lineID = fmt.Sprintf("%d", row.LineID)
	}
	return []string{
		row.WorkDate,
		row.WorklogID,
		row.IssueKey,
		row.Author,
		fmt.Sprintf("%d", row.Seconds),
		fmt.Sprintf("%.2f", row.Hours),
		string(row.Kind),
		target,
		lineID,
		row.Error,
		row.SessionID,
		row.RecordedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
