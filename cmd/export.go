package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"worksync/internal/timeutil"
	"worksync/output"
	"worksync/storage"
	"worksync/worklog"
)

var (
	exportFormat  string
	exportMode    string
	exportOutput  string
	exportDBPath  string
	exportFrom    string
	exportTo      string
	exportSession string
	exportCreated bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sync outcomes from the run ledger to CSV/Excel",
	Long: `Export the per-worklog outcomes recorded by sync sessions.

Modes:
- raw: one row per processed worklog (outcome, target, Odoo line id, error)
- daily: per work date and author (booked hours, created, skipped, errors)

Output format can be selected explicitly via --format or inferred from --output extension.
--from and --to filter on the worklog date (YYYY-MM-DD, inclusive).`,
	Example: `
  # Export all outcomes to CSV
  worksync export --output ./outcomes.csv

  # Export created lines of one week to Excel
  worksync export --created-only --from 2026-03-02 --to 2026-03-06 --output ./week.xlsx

  # Export daily summary to CSV
  worksync export --mode daily --output ./daily-summary.csv

  # Force Excel format independent of extension
  worksync export --mode daily --format excel --db ./worksync.db --output ./daily-summary.out
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}

		filter, err := buildOutcomeFilter(exportFrom, exportTo, exportSession, exportCreated)
		if err != nil {
			return err
		}

		dbPath := exportDBPath
		if strings.TrimSpace(dbPath) == "" {
			cfg, err := loadLedgerPath()
			if err != nil {
				return err
			}
			dbPath = cfg
		}

		store, err := storage.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := store.ListOutcomes(filter)
		if err != nil {
			return err
		}

		mode := strings.TrimSpace(strings.ToLower(exportMode))
		switch mode {
		case "", "raw":
			writer, writerErr := output.WriterForFormat(format)
			if writerErr != nil {
				return writerErr
			}
			if err := writer.Write(exportOutput, rows); err != nil {
				return err
			}
			fmt.Printf("Export completed. Rows: %d, Mode: raw, Format: %s, File: %s\n", len(rows), format, exportOutput)
		case "daily":
			summaries := output.BuildDailySummaries(rows)
			if err := output.WriteDailySummaries(exportOutput, format, summaries); err != nil {
				return err
			}
			fmt.Printf("Export completed. Days: %d, Mode: daily, Format: %s, File: %s\n", len(summaries), format, exportOutput)
		default:
			return fmt.Errorf("unsupported export mode: %s (supported: raw, daily)", exportMode)
		}
		return nil
	},
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func buildOutcomeFilter(from, to, sessionID string, createdOnly bool) (storage.OutcomeFilter, error) {
	filter := storage.OutcomeFilter{SessionID: strings.TrimSpace(sessionID)}

	var err error
	if filter.From, err = parseDay(from, "--from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDay(to, "--to"); err != nil {
		return filter, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return filter, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	if createdOnly {
		filter.Kinds = []worklog.OutcomeKind{worklog.OutcomeCreated}
	}
	return filter, nil
}

func parseDay(value, flag string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(timeutil.DayLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", flag, value)
	}
	return day, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportMode, "mode", "raw", "Export mode: raw|daily")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().StringVar(&exportDBPath, "db", "", "Path to the run ledger (default: sync.db_path from config)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First work date to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last work date to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportSession, "session", "", "Only outcomes of this session id")
	exportCmd.Flags().BoolVar(&exportCreated, "created-only", false, "Only outcomes that created an Odoo line")

	_ = exportCmd.MarkFlagRequired("output")
}
