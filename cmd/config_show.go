package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"worksync/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values. Secrets are masked.`,
	Example: `
  # Show active configuration
  worksync config show
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}

		source := viper.ConfigFileUsed()
		if source == "" {
			source = "(environment only)"
		}
		fmt.Println("Config file loaded from:", source)
		fmt.Println("Configuration:")
		printConfig(cmd.OutOrStdout(), cfg)
	},
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "tempo.base_url: %s\n", cfg.Tempo.BaseURL)
	fmt.Fprintf(w, "tempo.api_token: %s\n", maskSecret(cfg.Tempo.APIToken))
	fmt.Fprintf(w, "tempo.page_limit: %d\n", cfg.Tempo.PageLimit)
	fmt.Fprintf(w, "jira.base_url: %s\n", cfg.Jira.BaseURL)
	fmt.Fprintf(w, "jira.user: %s\n", cfg.Jira.User)
	fmt.Fprintf(w, "jira.api_token: %s\n", maskSecret(cfg.Jira.APIToken))
	fmt.Fprintf(w, "jira.link_field: %s\n", cfg.Jira.LinkField)
	fmt.Fprintf(w, "jira.parent_field: %s\n", cfg.Jira.ParentField)
	fmt.Fprintf(w, "jira.epic_link_field: %s\n", cfg.Jira.EpicLinkField)
	fmt.Fprintf(w, "odoo.url: %s\n", cfg.Odoo.URL)
	fmt.Fprintf(w, "odoo.db: %s\n", cfg.Odoo.DB)
	fmt.Fprintf(w, "odoo.username: %s\n", cfg.Odoo.Username)
	fmt.Fprintf(w, "odoo.password: %s\n", maskSecret(cfg.Odoo.Password))
	fmt.Fprintf(w, "odoo.employee_field: %s\n", cfg.Odoo.EmployeeField)
	fmt.Fprintf(w, "odoo.fallback_employee_id: %d\n", cfg.Odoo.FallbackEmployeeID)
	fmt.Fprintf(w, "odoo.worklog_id_field: %s\n", cfg.Odoo.WorklogIDField)
	fmt.Fprintf(w, "sync.lookback_hours: %d\n", cfg.Sync.LookbackHours)
	fmt.Fprintf(w, "sync.request_timeout: %s\n", cfg.Sync.RequestTimeout)
	fmt.Fprintf(w, "sync.db_path: %s\n", cfg.Sync.DBPath)
	fmt.Fprintf(w, "email.enabled: %t\n", cfg.Email.Enabled)
	fmt.Fprintf(w, "email.smtp_server: %s\n", cfg.Email.SMTPServer)
	fmt.Fprintf(w, "email.smtp_port: %d\n", cfg.Email.SMTPPort)
	fmt.Fprintf(w, "email.from: %s\n", cfg.Email.From)
	fmt.Fprintf(w, "email.password: %s\n", maskSecret(cfg.Email.Password))
	fmt.Fprintf(w, "email.to: %s\n", cfg.Email.To)
	fmt.Fprintf(w, "email.subject_prefix: %s\n", cfg.Email.SubjectPrefix)
	fmt.Fprintf(w, "logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "logging.format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "logging.dir: %s\n", cfg.Logging.Dir)
	fmt.Fprintf(w, "logging.file: %s\n", cfg.Logging.File)
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "(not set)"
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
