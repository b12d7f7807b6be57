package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	cliapi "flipmail/internal/cli"
)

var (
	ingestMessageID string
	ingestSubject   string
	ingestFrom      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Submit an email to the server for triage",
	Long: `Ingest sends an email body read from a file or stdin to the server.
The server parses it and either accepts it as a shipment update or
queues it for review.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMessageID, "message-id", "", "Provider message ID (required)")
	ingestCmd.Flags().StringVar(&ingestSubject, "subject", "", "Email subject line")
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "Email sender address")
	ingestCmd.MarkFlagRequired("message-id")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}
	if config.UserID == "" {
		return fmt.Errorf("user ID is required (use --user or FLIPMAIL_USER_ID)")
	}

	var body []byte
	if len(args) == 1 {
		body, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		body, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	decision, err := client.Ingest(&cliapi.IngestRequest{
		UserID:     config.UserID,
		MessageID:  ingestMessageID,
		Subject:    ingestSubject,
		From:       ingestFrom,
		HTMLBody:   string(body),
		ReceivedAt: time.Now(),
	})
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintDecision(decision)
}
