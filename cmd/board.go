package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/cadence/internal/board"
	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/output"
	"github.com/joescharf/cadence/internal/workflow"
)

var (
	boardTag  string
	moveForce bool
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	Long: `Show content grouped into workflow columns. Column counts cover every
item even when --tag narrows the cards shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardRun(boardTag)
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a content item to another column",
	Long: `Move a content item to idea, draft, scheduled or published.

A full target column (see 'cadence stages') refuses the move unless
--force is given. Moving into published stamps the publish date once.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moveRun(args[0], models.ContentStatus(args[1]))
	},
}

func init() {
	boardCmd.Flags().StringVar(&boardTag, "tag", "", "Only show cards with this tag")
	moveCmd.Flags().BoolVarP(&moveForce, "force", "f", false, "Ignore the target column's WIP limit")

	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(moveCmd)
}

func boardRun(tag string) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	ctrl, err := board.Open(userContext(), svc)
	if err != nil {
		return err
	}
	now := svc.Now()

	for i, col := range ctrl.Columns(workflow.NormalizeTag(tag)) {
		if i > 0 {
			fmt.Fprintln(ui.Out)
		}
		header := fmt.Sprintf("%s (%s)", col.Stage.Label, output.WIPLabel(col.Count, col.Stage.WIPLimit))
		fmt.Fprintln(ui.Out, output.StatusColor(string(col.Stage.ID))+"  "+header)

		if len(col.Items) == 0 {
			fmt.Fprintln(ui.Out, "  -")
			continue
		}
		for _, it := range col.Items {
			line := fmt.Sprintf("  %s  %s  [%s]", output.Cyan(shortID(it.ID)), it.Title, it.Platform)
			if it.DeadlineDate != nil && !it.IsPublished() {
				line += "  " + output.DeadlineLabel(it.DeadlineDate, workflow.IsOverdue(it, now), workflow.IsAtRisk(it, now))
			}
			if len(it.Tags) > 0 {
				line += "  #" + strings.Join(it.Tags, " #")
			}
			fmt.Fprintln(ui.Out, line)
		}
	}
	return nil
}

func moveRun(id string, status models.ContentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q (want idea, draft, scheduled, or published)", status)
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	it, err := findContent(ctx, svc, id)
	if err != nil {
		return err
	}
	if it.Status == status {
		ui.Info("%s is already %s", shortID(it.ID), status)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would move %s: %s -> %s", shortID(it.ID), it.Status, status)
		return nil
	}

	ctrl, err := board.Open(ctx, svc)
	if err != nil {
		return err
	}
	if err := ctrl.Move(ctx, it.ID, status, moveForce); err != nil {
		if errors.Is(err, board.ErrWIPLimit) {
			return fmt.Errorf("cannot move %s: %w (use --force to override)", shortID(it.ID), err)
		}
		return fmt.Errorf("move content: %w", err)
	}

	ui.Success("Moved %s: %s -> %s", output.Cyan(shortID(it.ID)), output.StatusColor(string(it.Status)), output.StatusColor(string(status)))
	return nil
}
