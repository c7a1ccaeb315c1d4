package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage worksync configuration file values.",
	Long: `Create, edit, display, and delete the worksync configuration file.

The configuration holds the connection settings of all three systems and the sync options:
- tempo.base_url / api_token / page_limit
- jira.base_url / user / api_token / link_field / parent_field / epic_link_field
- odoo.url / db / username / password / employee_field / fallback_employee_id / worklog_id_field
- sync.lookback_hours / request_timeout / db_path
- email.* and logging.*

Every key can also come from the environment, e.g. WORKSYNC_ODOO_PASSWORD or the
legacy names TEMPO_API_TOKEN, JIRA_BASE_URL, ODOO_URL. A .env file in the working
directory is loaded first.`,
	Example: `
  # Create default config in $HOME/.worksync.yaml
  worksync config create

  # Show active config and source file
  worksync config show

  # Open active config in editor (creates example if missing)
  worksync config edit

  # Delete active config file
  worksync config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
