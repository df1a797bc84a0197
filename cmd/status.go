package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inov8tr/ecolab/internal/health"
	"github.com/inov8tr/ecolab/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the database and summary archive",
	Long: `Check the components ecolab depends on.

The database is critical; the summary archive is optional, so an unreachable
archive degrades rather than fails. The same report is served at /healthz.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// newHealthChecker checks the shared store and archive.
func newHealthChecker() (*health.Checker, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	pub, err := getPublisher()
	if err != nil {
		return nil, err
	}
	return health.NewChecker(health.DefaultTimeout).
		Add("database ("+string(s.Driver())+")", true, s.DB().PingContext).
		Add("archive ("+string(pub.Driver())+")", false, pub.Check), nil
}

func statusRun() error {
	checker, err := newHealthChecker()
	if err != nil {
		return err
	}
	report := checker.Run(context.Background())

	table := ui.Table([]string{"Component", "Status", "Latency", "Error"})
	for _, c := range report.Checks {
		_ = table.Append([]string{
			c.Name,
			healthColor(c.Status),
			strconv.FormatInt(c.Latency, 10) + "ms",
			c.Error,
		})
	}
	_ = table.Render()

	fmt.Fprintf(ui.Out, "\nOverall: %s\n", healthColor(report.Status))
	if pid, running := pidFile().IsRunning(); running {
		ui.Info("API server running (pid %d, port %d)", pid, viper.GetInt("port"))
	}
	if report.Status == health.StatusDown {
		return fmt.Errorf("ecolab is unhealthy")
	}
	return nil
}

func healthColor(s health.Status) string {
	switch s {
	case health.StatusOK:
		return output.Green(string(s))
	case health.StatusDegraded:
		return output.Yellow(string(s))
	default:
		return output.Red(string(s))
	}
}
