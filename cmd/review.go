package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/output"
)

var (
	commentType     string
	commentVersion  int
	decisionVersion int
	decisionNotes   string
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	Aliases: []string{"comments"},
	Short:   "Peer review comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <test-id> <text>",
	Short: "Add a peer comment, optionally tied to a summary version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentAddRun(cmd, args[0], args[1])
	},
}

var commentListCmd = &cobra.Command{
	Use:     "list <test-id>",
	Aliases: []string{"ls"},
	Short:   "List peer comments, oldest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentListRun(cmd, args[0])
	},
}

var commentResolveCmd = &cobra.Command{
	Use:   "resolve <test-id> <comment-id>",
	Short: "Mark a peer comment resolved",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentResolveRun(args[0], args[1])
	},
}

var decisionCmd = &cobra.Command{
	Use:     "decision",
	Aliases: []string{"decisions"},
	Short:   "Peer review decisions",
}

var decisionAddCmd = &cobra.Command{
	Use:   "add <test-id> <decision>",
	Short: "Record a review decision (APPROVE, REJECT, REQUEST_CHANGES, ...) on a summary version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decisionAddRun(args[0], args[1])
	},
}

var decisionListCmd = &cobra.Command{
	Use:     "list <test-id>",
	Aliases: []string{"ls"},
	Short:   "List review decisions for a summary version",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decisionListRun(args[0])
	},
}

func init() {
	commentAddCmd.Flags().StringVarP(&commentType, "type", "t", models.CommentTypeNote, "Comment type (QUESTION, CONCERN, NOTE)")
	commentAddCmd.Flags().IntVar(&commentVersion, "version", 0, "Summary version the comment refers to")
	commentListCmd.Flags().IntVar(&commentVersion, "version", 0, "Only comments on this summary version")

	decisionAddCmd.Flags().IntVar(&decisionVersion, "version", 0, "Summary version under review (required)")
	decisionAddCmd.Flags().StringVar(&decisionNotes, "notes", "", "Decision notes")
	_ = decisionAddCmd.MarkFlagRequired("version")
	decisionListCmd.Flags().IntVar(&decisionVersion, "version", 0, "Summary version (required)")
	_ = decisionListCmd.MarkFlagRequired("version")

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentResolveCmd)
	decisionCmd.AddCommand(decisionAddCmd)
	decisionCmd.AddCommand(decisionListCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(decisionCmd)
}

// versionFlag returns the --version value when it was given.
func versionFlag(cmd *cobra.Command, v int) *int {
	if cmd == nil || !cmd.Flags().Changed("version") {
		return nil
	}
	return &v
}

func commentAddRun(cmd *cobra.Command, testID, text string) error {
	in := lifecycle.CommentInput{
		CommentType:    commentType,
		CommentText:    text,
		SummaryVersion: versionFlag(cmd, commentVersion),
	}
	if dryRun {
		ui.DryRunMsg("Would add %s comment to %s", commentType, testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	c, err := svc.AddComment(context.Background(), testID, in, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Added %s comment %s", c.CommentType, output.Cyan(output.ShortID(c.ID)))
	return nil
}

func commentListRun(cmd *cobra.Command, testID string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	comments, err := svc.ListComments(context.Background(), testID, versionFlag(cmd, commentVersion))
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		ui.Info("No comments.")
		return nil
	}

	table := ui.Table([]string{"ID", "Type", "Version", "Comment", "By", "Resolved"})
	for _, c := range comments {
		version := "-"
		if c.SummaryVersion != nil {
			version = "v" + strconv.Itoa(*c.SummaryVersion)
		}
		_ = table.Append([]string{
			output.ShortID(c.ID),
			c.CommentType,
			version,
			c.CommentText,
			c.CreatedByUserID,
			output.Confirmed(c.Resolved),
		})
	}
	_ = table.Render()
	return nil
}

func commentResolveRun(testID, commentID string) error {
	if dryRun {
		ui.DryRunMsg("Would resolve comment %s", commentID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	c, err := svc.ResolveComment(context.Background(), testID, commentID, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Comment %s resolved by %s", output.Cyan(output.ShortID(c.ID)), c.ResolvedByUserID)
	return nil
}

func decisionAddRun(testID, decision string) error {
	version := decisionVersion
	in := lifecycle.DecisionInput{
		SummaryVersion: &version,
		Decision:       decision,
		DecisionNotes:  decisionNotes,
	}
	if dryRun {
		ui.DryRunMsg("Would record %s on v%d of %s", decision, version, testID)
		return nil
	}
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	d, err := svc.AddDecision(context.Background(), testID, in, currentActor())
	if err != nil {
		return err
	}
	ui.Success("Recorded %s on summary v%d", d.Decision, d.SummaryVersion)
	return nil
}

func decisionListRun(testID string) error {
	svc, err := getService(nil)
	if err != nil {
		return err
	}
	decisions, err := svc.ListDecisions(context.Background(), testID, decisionVersion)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		ui.Info("No decisions for v%d.", decisionVersion)
		return nil
	}

	table := ui.Table([]string{"Decision", "Reviewer", "Role", "Notes", "At"})
	for _, d := range decisions {
		_ = table.Append([]string{
			d.Decision,
			d.ReviewerUserID,
			d.ReviewerRole,
			d.DecisionNotes,
			d.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	fmt.Fprintf(ui.Out, "%d decision(s)\n", len(decisions))
	return nil
}
