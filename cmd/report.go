package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"worksync/internal/timeutil"
	"worksync/notify"
	"worksync/storage"
	"worksync/syncer"
)

var (
	reportDays  int
	reportPrint bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compose the weekly sync report from the run ledger.",
	Long: `Summarize the sync sessions and outcomes of the last --days days from the
local run ledger and mail the report to the configured recipients.

With --print the report is written to stdout instead of being sent.`,
	Example: `
  # Mail the report for the last 7 days
  worksync report

  # Preview the report for the last 14 days
  worksync report --days 14 --print
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if reportPrint {
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			report, err := buildReport(store, reportDays, time.Now())
			if err != nil {
				return err
			}
			body, err := notify.RenderWeekly(report)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), body)
			return nil
		}

		report, err := sendWeeklyReport(cmd.Context(), a, reportDays, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Weekly report processed. Sessions: %d, Created: %d, Hours: %.2f\n",
			report.Sessions, report.Created, report.HoursBooked)
		return nil
	},
}

func sendWeeklyReport(ctx context.Context, a *app, days int, now time.Time) (notify.WeeklyReport, error) {
	store, err := a.requireStore()
	if err != nil {
		return notify.WeeklyReport{}, err
	}
	report, err := buildReport(store, days, now)
	if err != nil {
		return notify.WeeklyReport{}, err
	}
	if err := a.notifier.SendWeeklyReport(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

func buildReport(store *storage.SQLiteStore, days int, now time.Time) (notify.WeeklyReport, error) {
	if days <= 0 {
		days = 7
	}
	to := now
	from := timeutil.StartOfDay(now).AddDate(0, 0, -(days - 1))

	sessions, err := store.ListSessionsSince(from)
	if err != nil {
		return notify.WeeklyReport{}, err
	}
	outcomes, err := store.ListOutcomes(storage.OutcomeFilter{From: from, To: to})
	if err != nil {
		return notify.WeeklyReport{}, err
	}
	return syncer.BuildWeeklyReport(from, to, sessions, outcomes), nil
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(&reportDays, "days", 7, "Number of days covered, including today")
	reportCmd.Flags().BoolVar(&reportPrint, "print", false, "Print the report instead of sending it")
}
