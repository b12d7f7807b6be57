package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cliapi "flipmail/internal/cli"
)

var (
	queueStatus string
	queueLimit  int
	queueForce  bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the unparsed email queue",
}

var queueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List queued emails",
	RunE:    runQueueList,
}

var queueGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a queued email",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueGet,
}

var queueRequeueCmd = &cobra.Command{
	Use:   "requeue <id>",
	Short: "Put a failed email back in the pending queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRequeue,
}

var queueDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Remove an email from the queue",
	Args:    cobra.ExactArgs(1),
	RunE:    runQueueDelete,
}

func init() {
	queueListCmd.Flags().StringVar(&queueStatus, "status", "", "Filter by status (pending, processing, processed, failed)")
	queueListCmd.Flags().IntVar(&queueLimit, "limit", 50, "Maximum number of emails to list")
	queueRequeueCmd.Flags().BoolVar(&queueForce, "force", false, "Bypass the retry cooldown")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueGetCmd)
	queueCmd.AddCommand(queueRequeueCmd)
	queueCmd.AddCommand(queueDeleteCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}
	if config.UserID == "" {
		return fmt.Errorf("user ID is required (use --user or FLIPMAIL_USER_ID)")
	}

	list, err := client.GetQueue(config.UserID, queueStatus, queueLimit)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintQueue(list.Emails)
}

func runQueueGet(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	id, err := parseQueueID(args[0], formatter)
	if err != nil {
		return err
	}

	rec, err := client.GetQueuedEmail(id)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintQueuedEmail(rec)
}

func runQueueRequeue(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	id, err := parseQueueID(args[0], formatter)
	if err != nil {
		return err
	}

	if err := client.RequeueEmail(id, queueForce); err != nil {
		formatter.PrintError(err)
		return err
	}

	if !config.Quiet {
		formatter.PrintSuccess("Email requeued")
	}
	return nil
}

func runQueueDelete(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	id, err := parseQueueID(args[0], formatter)
	if err != nil {
		return err
	}

	if err := client.DeleteQueuedEmail(id); err != nil {
		formatter.PrintError(err)
		return err
	}

	if !config.Quiet {
		formatter.PrintSuccess("Email deleted")
	}
	return nil
}

// parseQueueID validates that the argument is a positive integer ID
func parseQueueID(arg string, formatter *cliapi.OutputFormatter) (int64, error) {
	if strings.TrimSpace(arg) == "" {
		err := fmt.Errorf("ID cannot be empty")
		formatter.PrintError(err)
		return 0, err
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		err = fmt.Errorf("invalid ID '%s': must be a positive integer", arg)
		formatter.PrintError(err)
		return 0, err
	}

	return id, nil
}
