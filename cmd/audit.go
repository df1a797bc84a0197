package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inov8tr/ecolab/internal/output"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit <test-id>",
	Short: "Show a binder test's audit ledger, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return auditRun(args[0])
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "Show at most this many events")
	rootCmd.AddCommand(auditCmd)
}

func auditRun(testID string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	events, err := svc.ListAuditEvents(context.Background(), testID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		ui.Info("No audit events.")
		return nil
	}
	if auditLimit > 0 && len(events) > auditLimit {
		events = events[:auditLimit]
	}

	table := ui.Table([]string{"At", "Event", "Entity", "By", "Notes"})
	for _, e := range events {
		entity := e.EntityType
		if e.EntityID != "" {
			entity = fmt.Sprintf("%s %s", e.EntityType, output.ShortID(e.EntityID))
		}
		by := e.PerformedByUserID
		if e.PerformedByRole != "" {
			by += " (" + e.PerformedByRole + ")"
		}
		_ = table.Append([]string{
			e.PerformedAt.Format("2006-01-02 15:04:05"),
			e.EventType,
			entity,
			by,
			e.Notes,
		})
	}
	_ = table.Render()
	return nil
}
