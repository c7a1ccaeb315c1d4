package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncTestOnly bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass from Tempo into Odoo.",
	Long: `Fetch Tempo worklogs of the configured lookback window and book each one as an
Odoo timesheet line. This is also what worksync does without a subcommand.

Worklogs already present in Odoo (matched by the Tempo worklog id) are skipped.
Issues without an Odoo link, on the issue itself or its parent, are skipped silently.
With --test only connectivity is checked and nothing is written.`,
	Example: `
  # Sync the last 24 hours (default lookback)
  worksync sync

  # Check connectivity only
  worksync sync --test
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, syncTestOnly)
	},
}

func runSync(cmd *cobra.Command, testOnly bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if testOnly {
		if err := a.service.Check(ctx); err != nil {
			return fmt.Errorf("connectivity check failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All connections OK.")
		return nil
	}

	stats, err := a.service.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sync completed. Created: %d, Skipped: %d, Errors: %d, Duration: %s\n",
		stats.Created, stats.Skipped, stats.Errors, stats.Duration.Round(time.Millisecond))
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncTestOnly, "test", false, "Only check connectivity to Odoo, Tempo and Jira")
}
