package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/workflow"
)

var reportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export content as JSON, CSV, or Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	items, err := svc.List(userContext())
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"ID", "Title", "Status", "Platform", "Priority", "Tags", "Deadline", "Scheduled", "Published", "Created"})
		for _, it := range items {
			_ = w.Write([]string{
				it.ID, it.Title, string(it.Status), string(it.Platform), string(it.Priority),
				strings.Join(it.Tags, ";"),
				dateCell(it.DeadlineDate), dateCell(it.ScheduledDate), dateCell(it.PublishedDate),
				it.CreatedAt.Format(time.DateOnly),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Content")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Title | Status | Platform | Priority | Deadline |")
		fmt.Fprintln(ui.Out, "|-------|--------|----------|----------|----------|")
		for _, it := range items {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s |\n", it.Title, it.Status, it.Platform, it.Priority, dateCell(it.DeadlineDate))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate reports",
	Long:  "Generate summary reports of content activity.",
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate a Markdown summary of the current week",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportWeeklyRun()
	},
}

func init() {
	reportCmd.AddCommand(reportWeeklyCmd)
	rootCmd.AddCommand(reportCmd)
}

// reportWeeklyRun prints what shipped this week (Monday UTC onwards), what is
// overdue or at risk, and what is scheduled next.
func reportWeeklyRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	items, err := svc.List(ctx)
	if err != nil {
		return err
	}
	points, err := svc.Throughput(ctx, 1)
	if err != nil {
		return err
	}
	now := svc.Now()
	weekStart := points[0].WeekStart

	var shipped, late, risky, upcoming []*models.ContentItem
	for _, it := range items {
		switch {
		case it.CompletedAt != nil && !it.CompletedAt.Before(weekStart):
			shipped = append(shipped, it)
		case workflow.IsOverdue(it, now):
			late = append(late, it)
		case workflow.IsAtRisk(it, now):
			risky = append(risky, it)
		}
		if it.Status == models.ContentStatusScheduled {
			upcoming = append(upcoming, it)
		}
	}

	fmt.Fprintf(ui.Out, "# Weekly Report (week of %s)\n\n", weekStart.Format(time.DateOnly))
	fmt.Fprintf(ui.Out, "- Published: %d\n", points[0].Published)
	writeSection("Shipped", shipped)
	writeSection("Overdue", late)
	writeSection("At risk", risky)
	writeSection("Scheduled", upcoming)
	return nil
}

func writeSection(title string, items []*models.ContentItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(ui.Out, "\n## %s\n", title)
	for _, it := range items {
		line := fmt.Sprintf("- %s (%s)", it.Title, it.Platform)
		if it.DeadlineDate != nil && !it.IsPublished() {
			line += " due " + it.DeadlineDate.Format(time.DateOnly)
		}
		fmt.Fprintln(ui.Out, line)
	}
}
