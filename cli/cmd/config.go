package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reviews/cli/internal/config"
	"github.com/telhawk-systems/telhawk-reviews/cli/pkg/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage reviewctl profiles",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile value",
	Example: `  reviewctl config set webhook_secret whsec_xxx
  reviewctl config set nexhealth_api_key sk_xxx --profile production`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("profile")
		if err := cfg.Set(name, args[0], args[1]); err != nil {
			return err
		}
		printer(cmd).Success("Set %s", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active profile (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := currentProfile(cmd).Redacted()

		p := printer(cmd)
		if handled, err := p.Structured(profile); handled {
			return err
		}

		values := map[string]string{
			"nexhealth_api_url": profile.NexHealthAPIURL,
			"nexhealth_api_key": profile.NexHealthAPIKey,
			"webhook_url":       profile.WebhookURL,
			"webhook_secret":    profile.WebhookSecret,
			"database_url":      profile.DatabaseURL,
			"migrations_path":   profile.MigrationsPath,
		}
		table := output.NewTable([]string{"KEY", "VALUE"})
		for _, k := range config.Keys() {
			table.AddRow([]string{k, values[k]})
		}
		table.Render(p.Out)
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <profile>",
	Short: "Switch the current profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.UseProfile(args[0]); err != nil {
			return err
		}
		printer(cmd).Success("Switched to profile %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configShowCmd, configUseCmd)
}
