package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/output"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:     "summary",
	Aliases: []string{"summaries"},
	Short:   "Create and inspect versioned summaries",
}

var summaryCreateCmd = &cobra.Command{
	Use:   "create <test-id>",
	Short: "Freeze the confirmed metrics of a READY test into a new summary version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return summaryCreateRun(args[0])
	},
}

var summaryListCmd = &cobra.Command{
	Use:     "list <test-id>",
	Aliases: []string{"ls"},
	Short:   "List summary versions of a test",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return summaryListRun(args[0])
	},
}

var summaryShowCmd = &cobra.Command{
	Use:   "show <test-id> <version>",
	Short: "Show one summary version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return summaryShowRun(args[0], args[1])
	},
}

func init() {
	summaryShowCmd.Flags().BoolVar(&summaryJSON, "json", false, "Print the frozen summary document as JSON")

	summaryCmd.AddCommand(summaryCreateCmd)
	summaryCmd.AddCommand(summaryListCmd)
	summaryCmd.AddCommand(summaryShowCmd)
	rootCmd.AddCommand(summaryCmd)
}

func summaryCreateRun(testID string) error {
	if dryRun {
		ui.DryRunMsg("Would create a summary for %s", testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	sum, err := svc.CreateSummary(context.Background(), testID, currentActor())
	if err != nil {
		return err
	}
	res := lifecycle.ResultOf(sum)
	ui.Success("Created summary v%d (%s)", res.Version, output.Cyan(res.DurableID))
	ui.Info("  summary id %s", res.SummaryID)
	if res.SupersedesSummaryID != "" {
		ui.Info("  supersedes %s", output.ShortID(res.SupersedesSummaryID))
	}
	ui.VerboseLog("Metrics hash %s", res.DerivedFromMetricsHash)
	return nil
}

func summaryListRun(testID string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	sums, err := svc.ListSummaries(context.Background(), testID)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		ui.Info("No summaries.")
		return nil
	}

	table := ui.Table([]string{"Version", "Durable ID", "Status", "Metrics", "Created", "By"})
	for _, s := range sums {
		_ = table.Append([]string{
			strconv.Itoa(s.Version),
			s.DurableID,
			output.StatusColor(string(s.Status)),
			strconv.Itoa(len(s.Payload.Metrics)),
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.CreatedByUserID,
		})
	}
	_ = table.Render()
	return nil
}

func summaryShowRun(testID, versionArg string) error {
	version, err := strconv.Atoi(versionArg)
	if err != nil || version < 1 {
		return fmt.Errorf("invalid version %q", versionArg)
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	sum, err := svc.GetSummary(context.Background(), testID, version)
	if err != nil {
		return err
	}

	if summaryJSON {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}

	fmt.Fprintf(ui.Out, "%s v%d\n", output.Cyan(sum.DurableID), sum.Version)
	fmt.Fprintf(ui.Out, "  Status:   %s\n", output.StatusColor(string(sum.Status)))
	fmt.Fprintf(ui.Out, "  Created:  %s by %s\n", sum.CreatedAt.Format("2006-01-02 15:04"), sum.CreatedByUserID)
	fmt.Fprintf(ui.Out, "  Hash:     %s\n", sum.DerivedFromMetricsHash)
	if sum.Payload.Notes != "" {
		fmt.Fprintf(ui.Out, "  Notes:    %s\n", sum.Payload.Notes)
	}

	if len(sum.Payload.Metrics) > 0 {
		fmt.Fprintln(ui.Out)
		table := ui.Table([]string{"Metric", "Position", "Value", "Units", "Temp"})
		for _, m := range sum.Payload.Metrics {
			_ = table.Append([]string{
				m.DisplayName(),
				output.PositionColor(m.Position),
				output.Number(m.Value),
				m.Units,
				output.Number(m.Temperature),
			})
		}
		_ = table.Render()
	}
	if len(sum.Payload.EvidenceFiles) > 0 {
		fmt.Fprintf(ui.Out, "\n  Evidence: %d file(s)\n", len(sum.Payload.EvidenceFiles))
	}
	return nil
}
