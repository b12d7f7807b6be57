package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Trigger a one-shot mailbox fetch on the server",
	Long: `Ask the server to pull new shipment notification emails from the
configured mailbox and run them through triage. Requires the server to
be configured with mailbox credentials.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	summary, err := client.FetchMailbox()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	formatter.PrintSuccess(fmt.Sprintf("Fetched %d emails: %d accepted, %d queued, %d duplicates, %d errors",
		summary.Fetched, summary.Accepted, summary.Queued, summary.Duplicates, summary.Errors))
	return nil
}
