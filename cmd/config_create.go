package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"worksync/config"
)

var configCreateDotEnv string

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a configuration file from the example template.",
	Long: `Create a new configuration file from the same example template used by "config edit".

If a configuration file is already in use, no new file is written.
With --dotenv a .env template using the environment variable names is written
as well, for deployments that keep credentials out of the YAML file.`,
	Example: `
  # Create default config at $HOME/.worksync.yaml
  worksync config create

  # Also write ./.env with all supported variables
  worksync config create --dotenv .env
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := saveDefaultConfig(); err != nil {
			return err
		}
		if configCreateDotEnv == "" {
			return nil
		}
		created, err := writeDotEnvTemplate(configCreateDotEnv)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Environment template created at: %s\n", configCreateDotEnv)
		} else {
			fmt.Printf("Environment file already exists at: %s\n", configCreateDotEnv)
		}
		return nil
	},
}

func saveDefaultConfig() error {
	configPath, err := resolveConfigEditPath(cfgFile, viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	created, err := ensureConfigFileWithTemplate(configPath)
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("New config file created at: %s\n", configPath)
		return nil
	}

	fmt.Printf("Config file already exists at: %s\n", configPath)
	return nil
}

// writeDotEnvTemplate never overwrites an existing file.
func writeDotEnvTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking env file failed: %w", err)
	}

	content, err := config.ExampleDotEnv()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("creating env template failed: %w", err)
	}
	return true, nil
}

func init() {
	configCmd.AddCommand(configCreateCmd)

	configCreateCmd.Flags().StringVar(&configCreateDotEnv, "dotenv", "", "Also write a .env template to this path")
}
