package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/cadence/internal/content"
	"github.com/joescharf/cadence/internal/llm"
	"github.com/joescharf/cadence/internal/workflow"
)

var importNoLLM bool

var contentImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import content ideas from a notes file",
	Long: `Turn brainstorming notes into idea items.

With an Anthropic key configured, Claude extracts titles, platforms,
priorities and tags. Otherwise (or with --no-llm) every bulleted or
numbered line becomes one idea; "## Heading" lines tag the ideas
beneath them, and indented sub-bullets become the description.

Ideas whose title already exists are skipped, so re-importing the same
file is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return contentImportRun(args[0])
	},
}

func init() {
	contentImportCmd.Flags().BoolVar(&importNoLLM, "no-llm", false, "Parse list items directly instead of calling the LLM")
	contentCmd.AddCommand(contentImportCmd)
}

func contentImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	notes := string(data)
	if strings.TrimSpace(notes) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(userContext(), commandTimeout)
	defer cancel()

	var ideas []llm.ExtractedIdea
	client := newLLMClient()
	if client == nil || importNoLLM {
		ideas = parseIdeaNotes(notes)
	} else {
		ui.Info("Extracting ideas with LLM...")
		if ideas, err = client.ExtractIdeas(ctx, notes); err != nil {
			return fmt.Errorf("extract ideas: %w", err)
		}
	}

	if len(ideas) == 0 {
		ui.Info("No ideas found in file.")
		return nil
	}

	table := ui.Table([]string{"#", "Title", "Platform", "Priority", "Tags"})
	for i, x := range ideas {
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			x.Title,
			x.Platform,
			x.Priority,
			strings.Join(x.Tags, ", "),
		})
	}
	_ = table.Render()

	if dryRun {
		ui.DryRunMsg("Would create %d ideas", len(ideas))
		return nil
	}

	return createIdeas(ctx, svc, ideas)
}

// parseIdeaNotes does a simple parse of markdown notes. Each top-level
// bullet or numbered line is an idea; indented bullets under it are joined
// into its description; the nearest "## " heading becomes a tag.
func parseIdeaNotes(notes string) []llm.ExtractedIdea {
	var ideas []llm.ExtractedIdea
	heading := ""

	for _, raw := range strings.Split(notes, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "## ") {
			heading = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}

		text, ok := listItemText(line)
		if !ok {
			continue
		}

		// Indented items extend the previous idea.
		indented := len(raw) > len(strings.TrimLeft(raw, " \t"))
		if indented && len(ideas) > 0 {
			last := &ideas[len(ideas)-1]
			if last.Description != "" {
				last.Description += "; "
			}
			last.Description += text
			continue
		}

		var tags []string
		if heading != "" {
			tags = workflow.NormalizeTags([]string{heading})
		}
		ideas = append(ideas, llm.ExtractedIdea{
			Title:    text,
			Platform: classifyPlatform(text),
			Priority: classifyPriority(text),
			Tags:     tags,
		})
	}

	return ideas
}

// listItemText strips a list marker ("- ", "* ", "- [ ] ", "1. ", "1) ")
// from line. ok is false when line is not a list item.
func listItemText(line string) (text string, ok bool) {
	for _, prefix := range []string{"- [ ] ", "- [x] ", "* [ ] ", "* [x] ", "- ", "* "} {
		if strings.HasPrefix(line, prefix) {
			text = strings.TrimSpace(line[len(prefix):])
			return text, text != ""
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i > 3 || i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return "", false
	}
	text = strings.TrimSpace(line[i+1:])
	return text, text != ""
}

// createIdeas adds each idea as an item, skipping titles already present
// (case-insensitive) and ideas that fail validation.
func createIdeas(ctx context.Context, svc *content.Service, ideas []llm.ExtractedIdea) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("list content: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[strings.ToLower(strings.TrimSpace(it.Title))] = true
	}

	created, skipped := 0, 0
	for _, x := range ideas {
		key := strings.ToLower(strings.TrimSpace(x.Title))
		if seen[key] {
			ui.VerboseLog("Skipping duplicate %q", x.Title)
			skipped++
			continue
		}

		if _, err := svc.Add(ctx, x.Item()); err != nil {
			ui.Warning("Failed to create %q: %v", x.Title, err)
			skipped++
			continue
		}
		seen[key] = true
		created++
	}

	ui.Success("Created %d ideas", created)
	if skipped > 0 {
		ui.Warning("Skipped %d ideas", skipped)
	}
	return nil
}
