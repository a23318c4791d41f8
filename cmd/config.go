package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/conneroisu/poolserve/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect poolserve configuration",
	Long: `Inspect the resolved configuration or validate a configuration file.

Examples:
  poolserve config show                     # Resolved configuration as YAML
  poolserve config show --format json       # ... as JSON
  poolserve config validate                 # Validate .poolserve.yml
  poolserve config validate --file prod.yml --strict`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration after the config file, POOLSERVE_* environment
variables, flags and defaults have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configFormat string
	configFile   string
	configStrict bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")

	configValidateCmd.Flags().
		StringVarP(&configFile, "file", "f", "", "Configuration file to validate (default: .poolserve.yml)")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if configReadErr != nil {
		return configReadErr
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", configFormat)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	target := configFile
	if target == "" {
		target = ".poolserve.yml"
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("configuration file %s does not exist", target)
	}

	v := viper.New()
	v.SetConfigFile(target)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	config.SetDefaults(v)

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	result := config.ValidateConfigWithDetails(&cfg)
	if result.Valid && !result.HasWarnings() {
		fmt.Fprintf(out, "%s is valid\n", target)
		return nil
	}

	fmt.Fprint(out, result.String())

	if result.HasErrors() {
		return fmt.Errorf("configuration validation failed with %d errors", len(result.Errors))
	}
	if configStrict {
		return fmt.Errorf("configuration validation failed in strict mode with %d warnings", len(result.Warnings))
	}
	return nil
}
