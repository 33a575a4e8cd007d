package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/output"
)

var (
	stageLabel string
	stageWIP   int
	stageColor string
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Show or customize board columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stagesListRun()
	},
}

var stagesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List board columns and their WIP limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stagesListRun()
	},
}

var stagesSetCmd = &cobra.Command{
	Use:   "set <status>",
	Short: "Change a column's label, WIP limit or color",
	Long:  "Change one column. --wip 0 removes the limit.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stagesSetRun(cmd, models.ContentStatus(args[0]))
	},
}

var stagesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stagesResetRun()
	},
}

func init() {
	stagesSetCmd.Flags().StringVar(&stageLabel, "label", "", "Column label")
	stagesSetCmd.Flags().IntVar(&stageWIP, "wip", 0, "WIP limit (0 = unlimited)")
	stagesSetCmd.Flags().StringVar(&stageColor, "color", "", "Column color, e.g. #f59e0b")

	stagesCmd.AddCommand(stagesListCmd)
	stagesCmd.AddCommand(stagesSetCmd)
	stagesCmd.AddCommand(stagesResetCmd)
	rootCmd.AddCommand(stagesCmd)
}

func stagesListRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	stages, err := svc.Stages(userContext())
	if err != nil {
		return err
	}

	table := ui.Table([]string{"Status", "Label", "WIP", "Color"})
	for _, st := range stages {
		wip := "-"
		if st.WIPLimit > 0 {
			wip = fmt.Sprint(st.WIPLimit)
		}
		_ = table.Append([]string{
			output.StatusColor(string(st.ID)),
			st.Label,
			wip,
			st.Color,
		})
	}
	_ = table.Render()
	return nil
}

func stagesSetRun(cmd *cobra.Command, status models.ContentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q (want idea, draft, scheduled, or published)", status)
	}
	flags := cmd.Flags()
	if !flags.Changed("label") && !flags.Changed("wip") && !flags.Changed("color") {
		return fmt.Errorf("no updates specified (use --label, --wip, or --color)")
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	stages, err := svc.Stages(ctx)
	if err != nil {
		return err
	}
	for i := range stages {
		if stages[i].ID != status {
			continue
		}
		if flags.Changed("label") {
			stages[i].Label = stageLabel
		}
		if flags.Changed("wip") {
			stages[i].WIPLimit = stageWIP
		}
		if flags.Changed("color") {
			stages[i].Color = stageColor
		}
	}

	if dryRun {
		ui.DryRunMsg("Would update %s column", status)
		return nil
	}

	if err := svc.SaveStages(ctx, stages); err != nil {
		return fmt.Errorf("save stages: %w", err)
	}
	ui.Success("Updated %s column", output.StatusColor(string(status)))
	return nil
}

func stagesResetRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would restore default columns")
		return nil
	}

	if err := svc.SaveStages(userContext(), models.DefaultStages()); err != nil {
		return fmt.Errorf("save stages: %w", err)
	}
	ui.Success("Restored default columns")
	return nil
}
