package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"worksync/syncer"
)

var (
	scheduleInterval   time.Duration
	scheduleWeeklyDay  string
	scheduleWeeklyDays int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run sync passes repeatedly until interrupted.",
	Long: `Run one sync pass immediately and then one per --interval until SIGINT or SIGTERM.

Every pass is an independent session with its own log file and error summary.
A failing pass is logged and the loop continues. On the configured weekday the
weekly report is mailed once after the first pass of that day.`,
	Example: `
  # Hourly sync, weekly report on Fridays
  worksync schedule

  # Every 15 minutes, no weekly report
  worksync schedule --interval 15m --weekly-day none
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		weeklyOn, weekly, err := parseWeekday(scheduleWeeklyDay)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scheduler := &syncer.Scheduler{
			Interval: scheduleInterval,
			Pass: func(ctx context.Context) error {
				_, err := a.service.Run(ctx)
				return err
			},
			WeeklyOn: weeklyOn,
			Log:      a.log,
		}
		if weekly {
			scheduler.Weekly = func(ctx context.Context) error {
				_, err := sendWeeklyReport(ctx, a, scheduleWeeklyDays, time.Now())
				return err
			}
		}
		return scheduler.Start(ctx)
	},
}

// parseWeekday accepts english day names or "none". The bool is false when
// the weekly report is disabled.
func parseWeekday(value string) (time.Weekday, bool, error) {
	normalized := strings.TrimSpace(strings.ToLower(value))
	if normalized == "" || normalized == "none" || normalized == "off" {
		return time.Sunday, false, nil
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if normalized == name || normalized == name[:3] {
			return day, true, nil
		}
	}
	return time.Sunday, false, fmt.Errorf("unknown weekday: %s", value)
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().DurationVar(&scheduleInterval, "interval", time.Hour, "Time between sync passes")
	scheduleCmd.Flags().StringVar(&scheduleWeeklyDay, "weekly-day", "friday", "Weekday for the weekly report, or none")
	scheduleCmd.Flags().IntVar(&scheduleWeeklyDays, "weekly-days", 7, "Days covered by the weekly report")
}
