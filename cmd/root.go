/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"worksync/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worksync",
	Short: "Sync Tempo worklogs into Odoo timesheets.",
	Long: `
**********************************************
*                WORKSYNC                    *
**********************************************

Fetches recent Tempo worklogs, resolves the Odoo task or helpdesk ticket each
Jira issue links to (falling back to its parent or epic), and books one Odoo
timesheet line per worklog. Worklogs already booked are skipped, failures are
collected and mailed as one summary per session.

Running worksync without a subcommand performs a single sync pass.`,
	Example: `
  # Create configuration file
  worksync config create

  # Check Odoo, Tempo and Jira connectivity without writing anything
  worksync --test

  # Run one sync pass over the last 24 hours
  worksync

  # Keep syncing every hour and send the weekly report on Fridays
  worksync schedule --interval 1h

  # Export last week's outcomes as a daily summary
  worksync export --mode daily --from 2026-03-02 --to 2026-03-06 --output ./daily.xlsx
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, syncTestOnly)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.worksync.yaml, then ./.worksync.yaml)")
	rootCmd.Flags().BoolVar(&syncTestOnly, "test", false, "Only check connectivity to Odoo, Tempo and Jira")
}

// initConfig reads in config file, .env and ENV variables if set.
func initConfig() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if err := config.BindEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".worksync")
	}

	// Environment-only setups are valid, so a missing file is just a hint.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found, using environment only. Create one with: worksync config create")
	}
}
