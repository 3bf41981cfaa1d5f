package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reviews/cli/internal/config"
	"github.com/telhawk-systems/telhawk-reviews/cli/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reviewctl",
	Short: "TelHawk Reviews CLI",
	Long: `reviewctl manages the review request ingest service.

Register NexHealth webhook subscriptions, send signed test deliveries,
and run database migrations from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if !output.ValidFormat(format) {
			return fmt.Errorf("invalid --output %q (table, json, yaml)", format)
		}
		return nil
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		output.New(output.FormatTable).Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.reviewctl/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", output.FormatTable, "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// currentProfile resolves the --profile flag against the loaded config.
func currentProfile(cmd *cobra.Command) *config.Profile {
	if cfg == nil {
		cfg = config.Default()
	}
	name, _ := cmd.Flags().GetString("profile")
	return cfg.GetProfile(name)
}

func printer(cmd *cobra.Command) *output.Printer {
	format, _ := cmd.Flags().GetString("output")
	return &output.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Format: format}
}

// stringFlag returns the flag value, or fallback when the flag was not set.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	if fallback != "" {
		return fallback
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}
