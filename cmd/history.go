package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"worksync/config"
	"worksync/storage"
)

var (
	historyLimit     int
	historyDBPath    string
	historyPruneDays int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync sessions from the run ledger.",
	Long: `Show the most recent sync sessions with their status and counters, newest first.

With --prune-days sessions older than the given number of days are deleted
together with their outcomes before listing.`,
	Example: `
  # Last 20 sessions
  worksync history

  # Drop sessions older than 90 days
  worksync history --prune-days 90
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := historyDBPath
		if strings.TrimSpace(dbPath) == "" {
			path, err := loadLedgerPath()
			if err != nil {
				return err
			}
			dbPath = path
		}

		store, err := storage.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if historyPruneDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -historyPruneDays)
			removed, err := store.PruneBefore(cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d sessions started before %s\n", removed, cutoff.Format("2006-01-02"))
		}

		sessions, err := store.ListSessions(historyLimit)
		if err != nil {
			return err
		}
		return printSessions(cmd.OutOrStdout(), sessions)
	},
}

func printSessions(w io.Writer, sessions []storage.SessionRow) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tCREATED\tSKIPPED\tERRORS\tDURATION\tSESSION\tERROR")
	for _, session := range sessions {
		duration := "-"
		if session.Status != storage.StatusRunning {
			duration = session.Stats.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			session.StartedAt.Local().Format("2006-01-02 15:04:05"),
			session.Status,
			session.Stats.Created,
			session.Stats.Skipped,
			session.Stats.Errors,
			duration,
			session.ID,
			session.Error,
		)
	}
	return tw.Flush()
}

// loadLedgerPath reads sync.db_path without requiring the full credential set.
func loadLedgerPath() (string, error) {
	path := strings.TrimSpace(viper.GetString(config.KeySyncDBPath))
	if path == "" {
		return "", fmt.Errorf("no ledger configured: set sync.db_path or pass --db")
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to list (0 for all)")
	historyCmd.Flags().StringVar(&historyDBPath, "db", "", "Path to the run ledger (default: sync.db_path from config)")
	historyCmd.Flags().IntVar(&historyPruneDays, "prune-days", 0, "Delete sessions older than this many days first")
}
