package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reviews/cli/internal/client"
	"github.com/telhawk-systems/telhawk-reviews/cli/internal/seeder"
	"github.com/telhawk-systems/telhawk-reviews/cli/pkg/output"
	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Sign and send test webhook deliveries",
}

var webhookSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print the signature of a payload",
	Example: `  reviewctl webhook sign --file payload.json --secret whsec_xxx
  cat payload.json | reviewctl webhook sign`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := stringFlag(cmd, "secret", currentProfile(cmd).WebhookSecret)
		if secret == "" {
			return fmt.Errorf("--secret is required")
		}

		file, _ := cmd.Flags().GetString("file")
		payload, err := readPayload(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}

		sig := nexhealth.Sign(payload, []byte(secret))
		p := printer(cmd)
		if handled, err := p.Structured(map[string]string{"header": nexhealth.HeaderSignature, "signature": sig}); handled {
			return err
		}
		fmt.Fprintln(p.Out, sig)
		return nil
	},
}

var webhookSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a signed delivery to the ingest service",
	Long: `Send a signed delivery. Without --file a realistic appointment.completed
payload is generated. --age, --type and --tamper produce deliveries the
service must reject or ignore.`,
	Example: `  reviewctl webhook send
  reviewctl webhook send --appointment-id 4242 --age 10m
  reviewctl webhook send --type appointment.created
  reviewctl webhook send --file payload.json --tamper`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := currentProfile(cmd)
		url := stringFlag(cmd, "url", profile.WebhookURL)
		secret := stringFlag(cmd, "secret", profile.WebhookSecret)
		if secret == "" {
			return fmt.Errorf("--secret is required")
		}

		file, _ := cmd.Flags().GetString("file")
		var payload []byte
		var err error
		if file != "" {
			payload, err = readPayload(cmd.InOrStdin(), file)
		} else {
			payload, err = generatePayload(cmd)
		}
		if err != nil {
			return err
		}

		tamper, _ := cmd.Flags().GetBool("tamper")
		res, err := client.NewWebhookSender(url, secret).Send(payload, client.SendOptions{Tamper: tamper})
		if err != nil {
			return fmt.Errorf("failed to send webhook: %w", err)
		}

		return printSendResult(printer(cmd), res)
	},
}

func generatePayload(cmd *cobra.Command) ([]byte, error) {
	eventType, _ := cmd.Flags().GetString("type")
	age, _ := cmd.Flags().GetDuration("age")
	apptID, _ := cmd.Flags().GetString("appointment-id")
	seed, _ := cmd.Flags().GetInt64("seed")

	return seeder.NewGenerator(seed).Webhook(seeder.Options{
		EventType:     eventType,
		Age:           age,
		AppointmentID: apptID,
	})
}

func readPayload(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

func printSendResult(p *output.Printer, res *client.SendResult) error {
	if handled, err := p.Structured(res); handled {
		return err
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		p.Success("%d %s", res.StatusCode, res.Message)
		return nil
	}
	msg := res.Error
	if msg == "" {
		msg = res.Message
	}
	p.Warn("%d %s", res.StatusCode, msg)
	return nil
}

func init() {
	rootCmd.AddCommand(webhookCmd)
	webhookCmd.AddCommand(webhookSignCmd)
	webhookCmd.AddCommand(webhookSendCmd)

	webhookSignCmd.Flags().StringP("file", "f", "", "Payload file (default: stdin)")
	webhookSignCmd.Flags().String("secret", "", "Webhook secret")

	webhookSendCmd.Flags().String("url", "", "Ingest webhook URL")
	webhookSendCmd.Flags().String("secret", "", "Webhook secret")
	webhookSendCmd.Flags().StringP("file", "f", "", "Send this payload instead of a generated one")
	webhookSendCmd.Flags().String("type", nexhealth.EventAppointmentCompleted, "Event type of the generated payload")
	webhookSendCmd.Flags().Duration("age", 0, "Backdate the envelope timestamp")
	webhookSendCmd.Flags().String("appointment-id", "", "Appointment id (default: random)")
	webhookSendCmd.Flags().Int64("seed", 0, "Seed for generated data (0: random)")
	webhookSendCmd.Flags().Bool("tamper", false, "Corrupt the signature")
}

