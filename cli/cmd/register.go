package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reviews/cli/internal/client"
	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

type registration struct {
	EndpointID    string   `json:"endpoint_id" yaml:"endpoint_id"`
	TargetURL     string   `json:"target_url" yaml:"target_url"`
	SecretKey     string   `json:"secret_key" yaml:"secret_key"`
	Subscriptions []string `json:"subscriptions" yaml:"subscriptions"`
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the webhook endpoint with NexHealth",
	Long: `Create a NexHealth webhook endpoint pointing at the ingest service and
subscribe it to the given event types. The returned secret key is what the
ingest service verifies signatures with.`,
	Example: `  reviewctl register --api-key sk_live_xxx --target-url https://reviews.example.com/api/nexhealth/webhook
  reviewctl register --event-type appointment.completed --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := currentProfile(cmd)

		apiURL := stringFlag(cmd, "api-url", profile.NexHealthAPIURL)
		apiKey := stringFlag(cmd, "api-key", profile.NexHealthAPIKey)
		targetURL := stringFlag(cmd, "target-url", profile.WebhookURL)
		eventTypes, _ := cmd.Flags().GetStringSlice("event-type")
		save, _ := cmd.Flags().GetBool("save")

		if apiKey == "" {
			return fmt.Errorf("NexHealth API key is required (use --api-key or 'reviewctl config set nexhealth_api_key ...')")
		}
		if targetURL == "" {
			return fmt.Errorf("--target-url is required")
		}
		if len(eventTypes) == 0 {
			return fmt.Errorf("at least one --event-type is required")
		}

		nh := client.NewNexHealthClient(apiURL, apiKey)
		ep, err := nh.CreateWebhookEndpoint(targetURL)
		if err != nil {
			return err
		}

		out := registration{EndpointID: ep.ID.String(), TargetURL: targetURL, SecretKey: ep.SecretKey}
		for _, et := range eventTypes {
			sub, err := nh.Subscribe(ep.ID, et)
			if err != nil {
				return err
			}
			out.Subscriptions = append(out.Subscriptions, sub.EventType)
		}

		if save && ep.SecretKey != "" {
			name, _ := cmd.Flags().GetString("profile")
			if err := cfg.Set(name, "webhook_secret", ep.SecretKey); err != nil {
				return fmt.Errorf("failed to save webhook secret: %w", err)
			}
		}

		p := printer(cmd)
		if handled, err := p.Structured(out); handled {
			return err
		}

		p.Success("Webhook endpoint %s registered for %s", ep.ID, targetURL)
		for _, s := range out.Subscriptions {
			p.Info("  subscribed: %s", s)
		}
		if save {
			p.Info("Secret key saved to %s", cfg.Path())
		} else {
			p.Warn("Secret key (store it as REVIEWS_WEBHOOK_SECRET): %s", ep.SecretKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("api-url", "", "NexHealth API base URL")
	registerCmd.Flags().String("api-key", "", "NexHealth API key")
	registerCmd.Flags().String("target-url", "", "Public URL of the ingest webhook endpoint")
	registerCmd.Flags().StringSlice("event-type", []string{nexhealth.EventAppointmentCompleted}, "Event types to subscribe to")
	registerCmd.Flags().Bool("save", false, "Save the returned secret key to the profile")
}

