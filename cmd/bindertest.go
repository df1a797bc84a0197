package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/output"
	"github.com/inov8tr/ecolab/internal/store"
)

var (
	testName     string
	testTestName string
	testPGHigh   float64
	testPGLow    float64
	testBatch    string
	testSource   string
	testPurpose  string
	testMaterial string
	testStandard string
	testQuery    string
	testStatus   string
	fileURL      string
	fileType     string
	fileLabel    string
)

var testCmd = &cobra.Command{
	Use:     "test",
	Aliases: []string{"tests"},
	Short:   "Manage binder tests",
	Long:    "Create, list, inspect and archive binder tests.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return testListRun()
	},
}

var testAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a binder test",
	RunE: func(cmd *cobra.Command, args []string) error {
		return testAddRun(cmd)
	},
}

var testListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List binder tests (archived tests are hidden unless --status ARCHIVED)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return testListRun()
	},
}

var testShowCmd = &cobra.Command{
	Use:   "show <test-id>",
	Short: "Show binder test details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return testShowRun(args[0])
	},
}

var testArchiveCmd = &cobra.Command{
	Use:   "archive <test-id>",
	Short: "Archive a binder test (terminal)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return testArchiveRun(args[0])
	},
}

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage a binder test's data files",
}

var fileAddCmd = &cobra.Command{
	Use:   "add <test-id>",
	Short: "Attach a data file (PDF or Excel files are parsed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fileAddRun(args[0])
	},
}

var fileListCmd = &cobra.Command{
	Use:     "list <test-id>",
	Aliases: []string{"ls"},
	Short:   "List a binder test's data files",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fileListRun(args[0])
	},
}

func init() {
	testAddCmd.Flags().StringVar(&testName, "name", "", "Test name (required)")
	testAddCmd.Flags().StringVar(&testTestName, "test-name", "", "Laboratory test performed, e.g. DSR")
	testAddCmd.Flags().Float64Var(&testPGHigh, "pg-high", 0, "Performance grade upper bound")
	testAddCmd.Flags().Float64Var(&testPGLow, "pg-low", 0, "Performance grade lower bound")
	testAddCmd.Flags().StringVar(&testBatch, "batch", "", "Binder batch id")
	testAddCmd.Flags().StringVar(&testSource, "source", "", "Binder source")
	testAddCmd.Flags().StringVar(&testPurpose, "purpose", "", "Test purpose")
	testAddCmd.Flags().StringVar(&testMaterial, "material", "", "Material description")
	testAddCmd.Flags().StringVar(&testStandard, "standard", "", "Governing standard, e.g. AASHTO T 315")
	_ = testAddCmd.MarkFlagRequired("name")

	testListCmd.Flags().StringVarP(&testQuery, "query", "q", "", "Match name or test name")
	testListCmd.Flags().StringVar(&testStatus, "status", "", "Filter by status: PENDING_REVIEW, READY, ARCHIVED")

	fileAddCmd.Flags().StringVar(&fileURL, "url", "", "File location (required)")
	fileAddCmd.Flags().StringVar(&fileType, "type", "", "MIME type or extension, e.g. application/pdf")
	fileAddCmd.Flags().StringVar(&fileLabel, "label", "", "Display name used in summary evidence")
	_ = fileAddCmd.MarkFlagRequired("url")

	testCmd.AddCommand(testAddCmd)
	testCmd.AddCommand(testListCmd)
	testCmd.AddCommand(testShowCmd)
	testCmd.AddCommand(testArchiveCmd)
	rootCmd.AddCommand(testCmd)

	fileCmd.AddCommand(fileAddCmd)
	fileCmd.AddCommand(fileListCmd)
	rootCmd.AddCommand(fileCmd)
}

func testAddRun(cmd *cobra.Command) error {
	in := lifecycle.NewBinderTest{
		Name:                testName,
		TestName:            testTestName,
		BatchID:             testBatch,
		BinderSource:        testSource,
		TestPurpose:         testPurpose,
		MaterialDescription: testMaterial,
		TestStandard:        testStandard,
	}
	if cmd != nil && cmd.Flags().Changed("pg-high") {
		v := testPGHigh
		in.PGHigh = &v
	}
	if cmd != nil && cmd.Flags().Changed("pg-low") {
		v := testPGLow
		in.PGLow = &v
	}

	if dryRun {
		ui.DryRunMsg("Would create binder test: %s", testName)
		return nil
	}

	svc, err := getService(nil)
	if err != nil {
		return err
	}
	t, err := svc.CreateBinderTest(context.Background(), in)
	if err != nil {
		return err
	}
	ui.Success("Created binder test %s: %s", output.Cyan(t.ID), t.Name)
	return nil
}

func testListRun() error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	tests, err := svc.ListBinderTests(context.Background(), store.BinderTestListFilter{
		Query:  testQuery,
		Status: models.LifecycleStatus(strings.ToUpper(testStatus)),
	})
	if err != nil {
		return err
	}

	if len(tests) == 0 {
		ui.Info("No binder tests found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Test", "Status", "Lifecycle", "Updated"})
	for _, t := range tests {
		_ = table.Append([]string{
			output.ShortID(t.ID),
			t.Name,
			t.TestName,
			output.StatusColor(string(t.Status)),
			output.StatusColor(string(t.EffectiveLifecycle())),
			t.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	return nil
}

func testShowRun(id string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	ctx := context.Background()
	t, err := svc.GetBinderTest(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(t.Name), output.StatusColor(string(t.Status)))
	fmt.Fprintf(ui.Out, "  ID:        %s\n", t.ID)
	fmt.Fprintf(ui.Out, "  Lifecycle: %s\n", output.StatusColor(string(t.EffectiveLifecycle())))
	for _, f := range []struct{ label, value string }{
		{"Test", t.TestName},
		{"Standard", t.TestStandard},
		{"Batch", t.BatchID},
		{"Source", t.BinderSource},
		{"Purpose", t.TestPurpose},
		{"Material", t.MaterialDescription},
	} {
		if f.value != "" {
			fmt.Fprintf(ui.Out, "  %-10s %s\n", f.label+":", f.value)
		}
	}
	if t.PGHigh != nil || t.PGLow != nil {
		fmt.Fprintf(ui.Out, "  PG:        %s / %s\n", output.Number(t.PGHigh), output.Number(t.PGLow))
	}
	fmt.Fprintf(ui.Out, "  Created:   %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))

	files, err := svc.ListDataFiles(ctx, id)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Files (%d):\n", len(files))
		for _, f := range files {
			fmt.Fprintf(ui.Out, "    %s  %s  %s\n", output.ShortID(f.ID), f.DisplayName(), f.FileType)
		}
	}
	return nil
}

func testArchiveRun(id string) error {
	if dryRun {
		ui.DryRunMsg("Would archive binder test %s", id)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	t, err := svc.Archive(context.Background(), id, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Archived binder test %s", output.Cyan(t.Name))
	return nil
}

func fileAddRun(testID string) error {
	if dryRun {
		ui.DryRunMsg("Would attach %s to %s", fileURL, testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	f, err := svc.AddDataFile(context.Background(), testID, lifecycle.NewDataFile{
		FileURL:  fileURL,
		FileType: fileType,
		Label:    fileLabel,
	})
	if err != nil {
		return err
	}
	ui.Success("Attached file %s: %s", output.Cyan(output.ShortID(f.ID)), f.DisplayName())
	return nil
}

func fileListRun(testID string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	files, err := svc.ListDataFiles(context.Background(), testID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		ui.Info("No data files.")
		return nil
	}
	table := ui.Table([]string{"ID", "Name", "Type", "URL"})
	for _, f := range files {
		_ = table.Append([]string{output.ShortID(f.ID), f.DisplayName(), f.FileType, f.FileURL})
	}
	_ = table.Render()
	return nil
}
