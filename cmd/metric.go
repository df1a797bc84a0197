package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/output"
)

var (
	metricType        string
	metricName        string
	metricPosition    string
	metricValue       float64
	metricUnits       string
	metricTemperature float64
	metricSourceFile  string
)

var parseCmd = &cobra.Command{
	Use:   "parse <test-id>",
	Short: "Extract metrics from a binder test's PDF and Excel files",
	Long: `Run a parse over the test's PDF and Excel files.

Unconfirmed metrics from earlier runs are replaced; confirmed metrics are kept.
The test moves to review on success.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return parseRun(args[0])
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <test-id>",
	Short: "Confirm all unconfirmed metrics and mark the test READY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return confirmRun(args[0])
	},
}

var metricCmd = &cobra.Command{
	Use:     "metric",
	Aliases: []string{"metrics"},
	Short:   "Inspect and correct metrics",
}

var metricListCmd = &cobra.Command{
	Use:     "list <test-id>",
	Aliases: []string{"ls"},
	Short:   "List a binder test's metrics",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return metricListRun(args[0])
	},
}

var metricAddCmd = &cobra.Command{
	Use:   "add <test-id>",
	Short: "Enter a metric by hand (recorded as confirmed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return metricAddRun(cmd, args[0])
	},
}

var metricPositionCmd = &cobra.Command{
	Use:   "position <test-id> <metric-id> <position>",
	Short: "Correct the position of an unconfirmed metric",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return metricPositionRun(args[0], args[1], args[2])
	},
}

func init() {
	metricAddCmd.Flags().StringVar(&metricType, "type", "", "Metric type (required)")
	metricAddCmd.Flags().StringVar(&metricName, "name", "", "Display name")
	metricAddCmd.Flags().StringVar(&metricPosition, "position", "", "Position")
	metricAddCmd.Flags().Float64Var(&metricValue, "value", 0, "Measured value (required)")
	metricAddCmd.Flags().StringVar(&metricUnits, "units", "", "Units")
	metricAddCmd.Flags().Float64Var(&metricTemperature, "temperature", 0, "Test temperature")
	metricAddCmd.Flags().StringVar(&metricSourceFile, "source-file", "", "Source data file id")
	_ = metricAddCmd.MarkFlagRequired("type")
	_ = metricAddCmd.MarkFlagRequired("value")

	metricCmd.AddCommand(metricListCmd)
	metricCmd.AddCommand(metricAddCmd)
	metricCmd.AddCommand(metricPositionCmd)
	rootCmd.AddCommand(metricCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(confirmCmd)
}

func parseRun(testID string) error {
	if dryRun {
		ui.DryRunMsg("Would parse data files of %s", testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	res, err := svc.Parse(context.Background(), testID, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Parsed %s: %d metric(s) inserted", testID, res.MetricsInserted)
	ui.VerboseLog("Parse run %s", res.ParseRunID)
	return nil
}

func confirmRun(testID string) error {
	if dryRun {
		ui.DryRunMsg("Would confirm metrics of %s", testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	res, err := svc.Confirm(context.Background(), testID, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Confirmed %d metric(s); test is %s", res.MetricsConfirmed, output.StatusColor(string(res.Status)))
	return nil
}

func metricListRun(testID string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	metrics, err := svc.ListMetrics(context.Background(), testID)
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		ui.Info("No metrics.")
		return nil
	}

	table := ui.Table([]string{"ID", "Metric", "Position", "Value", "Units", "Temp", "Confirmed"})
	for _, m := range metrics {
		_ = table.Append([]string{
			output.ShortID(m.ID),
			m.DisplayName(),
			output.PositionColor(m.Position),
			output.Number(m.Value),
			m.Units,
			output.Number(m.Temperature),
			output.Confirmed(m.IsUserConfirmed),
		})
	}
	_ = table.Render()
	return nil
}

func metricAddRun(cmd *cobra.Command, testID string) error {
	value := metricValue
	in := lifecycle.ManualMetricInput{
		MetricType:   metricType,
		MetricName:   metricName,
		Position:     metricPosition,
		Value:        &value,
		Units:        metricUnits,
		SourceFileID: metricSourceFile,
	}
	if cmd != nil && cmd.Flags().Changed("temperature") {
		temp := metricTemperature
		in.Temperature = &temp
	}

	if dryRun {
		ui.DryRunMsg("Would add %s = %v to %s", metricType, metricValue, testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	m, err := svc.AddManualMetric(context.Background(), testID, in, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Added metric %s: %s = %s %s", output.Cyan(output.ShortID(m.ID)), m.DisplayName(), output.Number(m.Value), m.Units)
	return nil
}

func metricPositionRun(testID, metricID, position string) error {
	if dryRun {
		ui.DryRunMsg("Would move metric %s to %s", metricID, position)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	m, err := svc.RepositionMetric(context.Background(), testID, metricID, position, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Metric %s is now at %s", output.Cyan(output.ShortID(m.ID)), output.PositionColor(m.Position))
	return nil
}
