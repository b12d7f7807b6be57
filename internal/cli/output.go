package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"flipmail/internal/database"
	"flipmail/internal/email"
	"flipmail/internal/parser"
	"flipmail/internal/triage"
)

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format string
	quiet  bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, quiet bool) *OutputFormatter {
	return &OutputFormatter{
		format: format,
		quiet:  quiet,
	}
}

// PrintQueue prints the unparsed email queue
func (f *OutputFormatter) PrintQueue(emails []email.UnparsedEmail) error {
	if f.quiet {
		for _, rec := range emails {
			fmt.Printf("%d\n", rec.ID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(emails)
	case "table":
		return f.printQueueTable(emails)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintQueuedEmail prints a single unparsed email
func (f *OutputFormatter) PrintQueuedEmail(rec *email.UnparsedEmail) error {
	if f.quiet {
		fmt.Printf("%d\n", rec.ID)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(rec)
	case "table":
		return f.printQueuedEmailDetail(rec)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintShipments prints accepted shipments
func (f *OutputFormatter) PrintShipments(shipments []database.Shipment) error {
	if f.quiet {
		for _, sh := range shipments {
			fmt.Printf("%d\n", sh.ID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(shipments)
	case "table":
		return f.printShipmentsTable(shipments)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintDecision prints a triage decision
func (f *OutputFormatter) PrintDecision(decision *triage.Decision) error {
	if f.quiet {
		fmt.Println(decision.Outcome)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(decision)
	case "table":
		fmt.Printf("Outcome: %s\n", decision.Outcome)
		if decision.QueueID != 0 {
			fmt.Printf("Queue ID: %d\n", decision.QueueID)
		}
		if decision.Candidate != nil {
			return f.PrintCandidate(decision.Candidate)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintCandidate prints an extraction result
func (f *OutputFormatter) PrintCandidate(c *parser.ShipmentCandidate) error {
	if f.format == "json" {
		return json.NewEncoder(os.Stdout).Encode(c)
	}

	fmt.Printf("Carrier: %s\n", orDash(c.Carrier))
	fmt.Printf("Type: %s\n", c.Type)
	fmt.Printf("Status: %s\n", orDash(c.Status))
	fmt.Printf("Completeness: %d\n", c.Completeness)
	fmt.Printf("Tracking email: %t\n", c.IsTrackingEmail)

	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE\tCONFIDENCE\tPATTERN")
	for _, name := range names {
		fr := c.Fields[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			name, truncate(fr.Value, 40), fr.Confidence, fr.SourcePattern)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(c.Anomalies) > 0 {
		fmt.Println("Anomalies:")
		for _, a := range c.Anomalies {
			if a.Evidence != "" {
				fmt.Printf("  %s: %s\n", a.Flag, a.Evidence)
			} else {
				fmt.Printf("  %s\n", a.Flag)
			}
		}
	}
	return nil
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		fmt.Printf("✓ %s\n", message)
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	if !f.quiet {
		fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
	}
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	if !f.quiet {
		fmt.Printf("ℹ %s\n", message)
	}
}

func (f *OutputFormatter) printQueueTable(emails []email.UnparsedEmail) error {
	if len(emails) == 0 {
		fmt.Println("No queued emails found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tSUBJECT\tSENDER\tCARRIER\tSCORE\tSTATUS\tRECEIVED")
	for _, rec := range emails {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.ID,
			truncate(rec.Subject, 35),
			truncate(rec.Sender, 25),
			orDash(rec.Carrier),
			rec.Completeness,
			rec.Status,
			rec.ReceivedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (f *OutputFormatter) printQueuedEmailDetail(rec *email.UnparsedEmail) error {
	fmt.Printf("ID: %d\n", rec.ID)
	fmt.Printf("User: %s\n", rec.UserID)
	fmt.Printf("Message ID: %s\n", rec.MessageID)
	fmt.Printf("Subject: %s\n", rec.Subject)
	fmt.Printf("Sender: %s\n", rec.Sender)
	fmt.Printf("Carrier: %s\n", orDash(rec.Carrier))
	fmt.Printf("Tracking: %s\n", orDash(rec.TrackingNumber))
	fmt.Printf("Score: %d\n", rec.Completeness)
	fmt.Printf("Status: %s\n", rec.Status)
	if rec.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", rec.ErrorMessage)
	}
	fmt.Printf("Received: %s\n", rec.ReceivedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (f *OutputFormatter) printShipmentsTable(shipments []database.Shipment) error {
	if len(shipments) == 0 {
		fmt.Println("No shipments found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTRACKING\tCARRIER\tTYPE\tSTATUS\tCODE\tDEADLINE\tSOURCE")
	for _, sh := range shipments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			sh.ID,
			truncate(sh.TrackingNumber, 20),
			orDash(sh.Carrier),
			sh.Type,
			orDash(sh.Status),
			orDash(sh.WithdrawalCode),
			orDash(sh.PickupDeadline),
			sh.Source)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
