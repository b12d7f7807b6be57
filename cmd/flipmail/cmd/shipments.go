package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var shipmentsLimit int

var shipmentsCmd = &cobra.Command{
	Use:     "shipments",
	Aliases: []string{"ls"},
	Short:   "List accepted shipments",
	RunE:    runShipments,
}

func init() {
	shipmentsCmd.Flags().IntVar(&shipmentsLimit, "limit", 50, "Maximum number of shipments to list")
	rootCmd.AddCommand(shipmentsCmd)
}

func runShipments(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}
	if config.UserID == "" {
		return fmt.Errorf("user ID is required (use --user or FLIPMAIL_USER_ID)")
	}

	list, err := client.GetShipments(config.UserID, shipmentsLimit)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintShipments(list.Shipments)
}
