package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/output"
)

var statsWeeks int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline counts, completion time and throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun()
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tagsRun()
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsWeeks, "weeks", "w", 8, "Weeks of throughput history")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tagsCmd)
}

func statsRun() error {
	if statsWeeks < 1 || statsWeeks > 104 {
		return fmt.Errorf("--weeks must be between 1 and 104")
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	st, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	completion, err := svc.CompletionStats(ctx)
	if err != nil {
		return err
	}
	platforms, err := svc.PlatformCounts(ctx)
	if err != nil {
		return err
	}
	points, err := svc.Throughput(ctx, statsWeeks)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "Content: %d total\n", st.Total)
	table := ui.Table([]string{"Idea", "Draft", "Scheduled", "Published", "Overdue", "At risk"})
	_ = table.Append([]string{
		fmt.Sprint(st.Idea),
		fmt.Sprint(st.Draft),
		fmt.Sprint(st.Scheduled),
		fmt.Sprint(st.Published),
		countLabel(st.Overdue, output.Red),
		countLabel(st.AtRisk, output.Yellow),
	})
	_ = table.Render()

	fmt.Fprintln(ui.Out)
	if st.Published == 0 {
		fmt.Fprintln(ui.Out, "Completion: no published items yet")
	} else {
		fmt.Fprintf(ui.Out, "Completion: avg %.1fd, min %.1fd, max %.1fd\n", completion.Avg, completion.Min, completion.Max)
	}

	if len(platforms) > 0 {
		names := make([]string, 0, len(platforms))
		for p := range platforms {
			names = append(names, string(p))
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s %d", n, platforms[models.Platform(n)])
		}
		fmt.Fprintf(ui.Out, "Platforms:  %s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "Throughput (last %d weeks)\n", statsWeeks)
	peak := 0
	for _, p := range points {
		peak = max(peak, p.Published)
	}
	for _, p := range points {
		fmt.Fprintf(ui.Out, "  %s  %s %d\n", p.WeekStart.Format(time.DateOnly), bar(p.Published, peak, 30), p.Published)
	}
	return nil
}

func tagsRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	tags, err := svc.Tags(userContext())
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		ui.Info("No tags in use.")
		return nil
	}
	for _, t := range tags {
		fmt.Fprintln(ui.Out, t)
	}
	return nil
}

func countLabel(n int, color func(string) string) string {
	if n == 0 {
		return "0"
	}
	return color(fmt.Sprint(n))
}

// bar renders n as a run of blocks scaled so peak fills width.
func bar(n, peak, width int) string {
	if peak == 0 || n == 0 {
		return ""
	}
	return output.Green(strings.Repeat("█", max(1, n*width/peak)))
}
