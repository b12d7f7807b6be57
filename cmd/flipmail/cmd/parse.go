package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	cliapi "flipmail/internal/cli"
	"flipmail/internal/email"
	"flipmail/internal/parser"
)

var (
	parseSubject string
	parseFrom    string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an email body locally without a server",
	Long: `Parse runs the extraction rules against an email body read from
a file or stdin and prints the resulting candidate. Nothing is sent
to the server and nothing is persisted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseSubject, "subject", "", "Email subject line")
	parseCmd.Flags().StringVar(&parseFrom, "from", "", "Email sender address")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var body []byte
	var err error

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

	outputFormat := format
	if outputFormat == "" {
		outputFormat = "table"
	}
	formatter := cliapi.NewOutputFormatter(outputFormat, quiet)

	extractor := parser.NewExtractor()
	candidate := extractor.Parse(&email.RawEmail{
		MessageID: "local",
		Provider:  email.ProviderGmail,
		From:      parseFrom,
		Subject:   parseSubject,
		HTMLText:  string(body),
	})

	return formatter.PrintCandidate(candidate)
}
