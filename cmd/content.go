package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/cadence/internal/content"
	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/output"
	"github.com/joescharf/cadence/internal/store"
	"github.com/joescharf/cadence/internal/workflow"
)

var (
	contentTitle     string
	contentDesc      string
	contentBody      string
	contentStatus    string
	contentPlatform  string
	contentPriority  string
	contentTags      []string
	contentTag       string
	contentDeadline  string
	contentScheduled string
)

var contentCmd = &cobra.Command{
	Use:     "content",
	Aliases: []string{"c"},
	Short:   "Manage content items",
	Long:    "Track blog posts, threads, videos and newsletters from idea to published.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentListRun()
	},
}

var contentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new content item",
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentAddRun()
	},
}

var contentListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List content items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentListRun()
	},
}

var contentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show content item details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentShowRun(args[0])
	},
}

var contentUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a content item",
	Long: `Update fields of a content item. Only flags that are passed change.
Pass an empty date (--deadline "") to clear it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentUpdateRun(cmd, args[0])
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a content item",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentDeleteRun(args[0])
	},
}

var contentEnrichCmd = &cobra.Command{
	Use:   "enrich <id>",
	Short: "Draft a description, outline and tags with an LLM",
	Long: `Ask Claude for a one-line description, a body outline and topic tags.
The outline only fills an empty body; tags are merged.

Requires ANTHROPIC_API_KEY environment variable or anthropic.api_key in config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentEnrichRun(args[0])
	},
}

func init() {
	contentAddCmd.Flags().StringVar(&contentTitle, "title", "", "Working title (required)")
	contentAddCmd.Flags().StringVar(&contentDesc, "desc", "", "Short description")
	contentAddCmd.Flags().StringVar(&contentBody, "body", "", "Draft body text")
	contentAddCmd.Flags().StringVar(&contentStatus, "status", "", "Status: idea, draft, scheduled, published (default idea)")
	contentAddCmd.Flags().StringVar(&contentPlatform, "platform", "", "Platform: blog, twitter, linkedin, youtube, instagram, newsletter (default blog)")
	contentAddCmd.Flags().StringVar(&contentPriority, "priority", "", "Priority: low, medium, high (default medium)")
	contentAddCmd.Flags().StringSliceVar(&contentTags, "tag", nil, "Tag to apply (repeatable or comma-separated)")
	contentAddCmd.Flags().StringVar(&contentDeadline, "deadline", "", "Deadline date (YYYY-MM-DD)")
	contentAddCmd.Flags().StringVar(&contentScheduled, "scheduled", "", "Scheduled publish date (YYYY-MM-DD)")
	_ = contentAddCmd.MarkFlagRequired("title")

	contentListCmd.Flags().StringVar(&contentStatus, "status", "", "Filter by status")
	contentListCmd.Flags().StringVar(&contentPlatform, "platform", "", "Filter by platform")
	contentListCmd.Flags().StringVar(&contentTag, "tag", "", "Filter by tag")

	contentUpdateCmd.Flags().StringVar(&contentTitle, "title", "", "New title")
	contentUpdateCmd.Flags().StringVar(&contentDesc, "desc", "", "New description")
	contentUpdateCmd.Flags().StringVar(&contentBody, "body", "", "New body text")
	contentUpdateCmd.Flags().StringVar(&contentStatus, "status", "", "New status (WIP limits are not checked; use 'cadence move')")
	contentUpdateCmd.Flags().StringVar(&contentPlatform, "platform", "", "New platform")
	contentUpdateCmd.Flags().StringVar(&contentPriority, "priority", "", "New priority")
	contentUpdateCmd.Flags().StringSliceVar(&contentTags, "tag", nil, "Replace tags")
	contentUpdateCmd.Flags().StringVar(&contentDeadline, "deadline", "", "New deadline (YYYY-MM-DD, empty clears)")
	contentUpdateCmd.Flags().StringVar(&contentScheduled, "scheduled", "", "New scheduled date (YYYY-MM-DD, empty clears)")

	contentCmd.AddCommand(contentAddCmd)
	contentCmd.AddCommand(contentListCmd)
	contentCmd.AddCommand(contentShowCmd)
	contentCmd.AddCommand(contentUpdateCmd)
	contentCmd.AddCommand(contentDeleteCmd)
	contentCmd.AddCommand(contentEnrichCmd)
	rootCmd.AddCommand(contentCmd)
}

func contentAddRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	draft := models.ContentItem{
		Title:       contentTitle,
		Description: contentDesc,
		Body:        contentBody,
		Status:      models.ContentStatus(contentStatus),
		Platform:    models.Platform(contentPlatform),
		Priority:    models.Priority(contentPriority),
		Tags:        workflow.NormalizeTags(contentTags),
	}
	if draft.DeadlineDate, err = parseDateFlag("deadline", contentDeadline); err != nil {
		return err
	}
	if draft.ScheduledDate, err = parseDateFlag("scheduled", contentScheduled); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add %s: %s", orDefault(contentPlatform, "blog"), contentTitle)
		return nil
	}

	item, err := svc.Add(userContext(), draft)
	if err != nil {
		return fmt.Errorf("add content: %w", err)
	}

	ui.Success("Created %s: %s", output.Cyan(shortID(item.ID)), item.Title)
	return nil
}

func contentListRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	items, err := svc.List(userContext())
	if err != nil {
		return err
	}

	var rows []*models.ContentItem
	for _, it := range workflow.FilterByTag(items, workflow.NormalizeTag(contentTag)) {
		if contentStatus != "" && string(it.Status) != contentStatus {
			continue
		}
		if contentPlatform != "" && string(it.Platform) != contentPlatform {
			continue
		}
		rows = append(rows, it)
	}

	if len(rows) == 0 {
		ui.Info("No content found.")
		return nil
	}

	now := svc.Now()
	table := ui.Table([]string{"ID", "Title", "Status", "Platform", "Priority", "Deadline", "Tags"})
	for _, it := range rows {
		_ = table.Append([]string{
			shortID(it.ID),
			it.Title,
			output.StatusColor(string(it.Status)),
			string(it.Platform),
			output.PriorityColor(string(it.Priority)),
			output.DeadlineLabel(it.DeadlineDate, workflow.IsOverdue(it, now), workflow.IsAtRisk(it, now)),
			strings.Join(it.Tags, ", "),
		})
	}
	_ = table.Render()
	return nil
}

func contentShowRun(id string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	it, err := findContent(ctx, svc, id)
	if err != nil {
		return err
	}
	now := svc.Now()

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(it.ID)), it.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(it.Status)))
	fmt.Fprintf(ui.Out, "  Platform:   %s\n", it.Platform)
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(string(it.Priority)))
	if it.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", it.Description)
	}
	if len(it.Tags) > 0 {
		fmt.Fprintf(ui.Out, "  Tags:       %s\n", strings.Join(it.Tags, ", "))
	}
	if it.DeadlineDate != nil {
		fmt.Fprintf(ui.Out, "  Deadline:   %s\n", output.DeadlineLabel(it.DeadlineDate, workflow.IsOverdue(it, now), workflow.IsAtRisk(it, now)))
	}
	if it.ScheduledDate != nil {
		fmt.Fprintf(ui.Out, "  Scheduled:  %s\n", it.ScheduledDate.Format(time.DateOnly))
	}
	if it.PublishedDate != nil {
		fmt.Fprintf(ui.Out, "  Published:  %s\n", it.PublishedDate.Format(time.RFC3339))
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", it.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", it.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", it.ID)
	if it.Body != "" {
		fmt.Fprintf(ui.Out, "\n%s\n", it.Body)
	}

	return nil
}

func contentUpdateRun(cmd *cobra.Command, id string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	it, err := findContent(ctx, svc, id)
	if err != nil {
		return err
	}

	var patch models.ContentPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &contentTitle
	}
	if flags.Changed("desc") {
		patch.Description = &contentDesc
	}
	if flags.Changed("body") {
		patch.Body = &contentBody
	}
	if flags.Changed("status") {
		s := models.ContentStatus(contentStatus)
		patch.Status = &s
	}
	if flags.Changed("platform") {
		p := models.Platform(contentPlatform)
		patch.Platform = &p
	}
	if flags.Changed("priority") {
		p := models.Priority(contentPriority)
		patch.Priority = &p
	}
	if flags.Changed("tag") {
		tags := workflow.NormalizeTags(contentTags)
		patch.Tags = &tags
	}
	if flags.Changed("deadline") {
		if patch.DeadlineDate, err = parseClearableDate("deadline", contentDeadline); err != nil {
			return err
		}
	}
	if flags.Changed("scheduled") {
		if patch.ScheduledDate, err = parseClearableDate("scheduled", contentScheduled); err != nil {
			return err
		}
	}

	if patch.Empty() {
		return fmt.Errorf("no updates specified (use --title, --desc, --body, --status, --platform, --priority, --tag, --deadline, or --scheduled)")
	}

	if dryRun {
		ui.DryRunMsg("Would update %s", shortID(it.ID))
		return nil
	}

	if _, err := svc.Update(ctx, it.ID, patch); err != nil {
		return fmt.Errorf("update content: %w", err)
	}

	ui.Success("Updated %s", output.Cyan(shortID(it.ID)))
	return nil
}

func contentDeleteRun(id string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := userContext()

	it, err := findContent(ctx, svc, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete %s: %s", shortID(it.ID), it.Title)
		return nil
	}

	if err := svc.Delete(ctx, it.ID); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	ui.Success("Deleted %s: %s", output.Cyan(shortID(it.ID)), it.Title)
	return nil
}

func contentEnrichRun(id string) error {
	client := newLLMClient()
	if client == nil {
		return fmt.Errorf("ANTHROPIC_API_KEY not set (set env var or anthropic.api_key in config)")
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(userContext(), commandTimeout)
	defer cancel()

	it, err := findContent(ctx, svc, id)
	if err != nil {
		return err
	}

	ui.Info("Enriching %s with LLM...", output.Cyan(shortID(it.ID)))
	enr, err := client.Enrich(ctx, it)
	if err != nil {
		return fmt.Errorf("enrich content: %w", err)
	}

	patch := enr.Patch(it)
	fmt.Fprintf(ui.Out, "  Desc:       %s\n", enr.Description)
	if patch.Tags != nil {
		fmt.Fprintf(ui.Out, "  Tags:       %s\n", strings.Join(*patch.Tags, ", "))
	}
	if patch.Body != nil {
		fmt.Fprintf(ui.Out, "\n%s\n\n", *patch.Body)
	}

	if dryRun {
		ui.DryRunMsg("Would apply enrichment to %s", shortID(it.ID))
		return nil
	}

	if _, err := svc.Update(ctx, it.ID, patch); err != nil {
		return fmt.Errorf("apply enrichment: %w", err)
	}
	ui.Success("Enriched %s", output.Cyan(shortID(it.ID)))
	return nil
}

// findContent finds an item by full ID or unique prefix.
func findContent(ctx context.Context, svc *content.Service, id string) (*models.ContentItem, error) {
	// Try exact match first
	if it, err := svc.Get(ctx, id); err == nil {
		return it, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	upper := strings.ToUpper(id)
	items, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*models.ContentItem
	for _, it := range items {
		if strings.HasPrefix(it.ID, upper) {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("content not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous content ID %s: matches %d items", id, len(matches))
	}
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// parseDateFlag parses a YYYY-MM-DD flag value as midnight UTC. Empty is unset.
func parseDateFlag(name, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, v)
	}
	return &t, nil
}

// parseClearableDate is parseDateFlag for patches: empty yields the zero
// time, which clears the date.
func parseClearableDate(name, v string) (*time.Time, error) {
	t, err := parseDateFlag(name, v)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return &time.Time{}, nil
	}
	return t, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
