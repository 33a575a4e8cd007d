package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/workflow"
)

// Client wraps the Anthropic API for content enrichment and idea extraction.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// complete sends one system+user exchange and returns the text reply with
// any markdown fencing removed.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return stripFence(text), nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// --- Enrichment ---

// Enrichment holds the LLM-generated fields for a content item.
type Enrichment struct {
	Description string   `json:"description"`
	Outline     string   `json:"outline"`
	Tags        []string `json:"tags"`
}

// buildEnrichPrompt constructs the system and user prompts for content enrichment.
func buildEnrichPrompt(item *models.ContentItem) (system string, user string) {
	system = `You help a content team plan posts. Given a content item's title, platform and any existing notes, return a JSON object with exactly three fields:

- "description": A 1-2 sentence summary of the piece. If a description is already provided, tighten it. Otherwise write one from the title and notes.
- "outline": A short markdown bullet outline (4-8 bullets) suited to the target platform's length and format.
- "tags": 2-5 short lowercase topic tags. Reuse the existing tags where they fit.

Rules:
- Return valid JSON only, no markdown fencing or explanation
- Keep the outline within what the platform allows (a tweet thread is short, a blog post can be long)
- If only a title is given, infer as much as possible from it`

	var sb strings.Builder
	sb.WriteString("Title: ")
	sb.WriteString(item.Title)
	sb.WriteString("\nPlatform: ")
	sb.WriteString(string(item.Platform))
	sb.WriteString("\n")
	if item.Description != "" {
		sb.WriteString("\nExisting description: ")
		sb.WriteString(item.Description)
		sb.WriteString("\n")
	}
	if item.Body != "" {
		sb.WriteString("\nCurrent draft:\n")
		sb.WriteString(item.Body)
		sb.WriteString("\n")
	}
	if len(item.Tags) > 0 {
		sb.WriteString("\nExisting tags: ")
		sb.WriteString(strings.Join(item.Tags, ", "))
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// Enrich asks the LLM for a description, outline and tags for item.
func (c *Client) Enrich(ctx context.Context, item *models.ContentItem) (*Enrichment, error) {
	system, user := buildEnrichPrompt(item)
	text, err := c.complete(ctx, system, user, 2048)
	if err != nil {
		return nil, err
	}

	var e Enrichment
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return &e, nil
}

// Patch turns an enrichment into an update for item. The description is
// replaced when one was generated, the outline only fills an empty body, and
// suggested tags are normalized and merged after the existing ones.
func (e *Enrichment) Patch(item *models.ContentItem) models.ContentPatch {
	var p models.ContentPatch
	if e.Description != "" {
		desc := e.Description
		p.Description = &desc
	}
	if e.Outline != "" && strings.TrimSpace(item.Body) == "" {
		body := e.Outline
		p.Body = &body
	}
	if len(e.Tags) > 0 {
		merged := append([]string{}, item.Tags...)
		for _, t := range workflow.NormalizeTags(e.Tags) {
			if !item.HasTag(t) {
				merged = append(merged, t)
			}
		}
		if len(merged) != len(item.Tags) {
			p.Tags = &merged
		}
	}
	return p
}

// --- Idea extraction ---

// ExtractedIdea is one content idea pulled out of free-form notes.
type ExtractedIdea struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Platform    string   `json:"platform"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// buildExtractPrompt constructs the system and user prompts for idea extraction.
func buildExtractPrompt(notes string, platforms []models.Platform) (system string, user string) {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = `"` + string(p) + `"`
	}

	system = `You extract content ideas from brainstorming notes. Return ONLY a JSON array of objects with these fields:
- "title": a working title for the piece
- "description": one sentence on the angle (can be empty string if the title says it all)
- "platform": one of ` + strings.Join(names, ", ") + `
- "priority": one of "low", "medium", "high"
- "tags": 0-3 short lowercase topic tags

Rules:
- Each bullet or numbered line is one idea; merge sub-bullets into their parent idea
- Default platform to "blog" and priority to "medium" unless the notes say otherwise
- Never create placeholder ideas like "TBD" or "N/A"
- Return valid JSON only, no markdown fencing or explanation`

	user = "Extract content ideas from these notes:\n\n" + notes
	return
}

// ExtractIdeas turns free-form notes into content idea drafts.
func (c *Client) ExtractIdeas(ctx context.Context, notes string) ([]ExtractedIdea, error) {
	system, user := buildExtractPrompt(notes, models.Platforms)
	text, err := c.complete(ctx, system, user, 4096)
	if err != nil {
		return nil, err
	}

	var ideas []ExtractedIdea
	if err := json.Unmarshal([]byte(text), &ideas); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return ideas, nil
}

// Item converts an extracted idea into a draft in the idea column. Unknown
// platform or priority values are left for validation to reject.
func (x ExtractedIdea) Item() models.ContentItem {
	return models.ContentItem{
		Title:       x.Title,
		Description: x.Description,
		Status:      models.ContentStatusIdea,
		Platform:    models.Platform(strings.ToLower(x.Platform)),
		Priority:    models.Priority(strings.ToLower(x.Priority)),
		Tags:        workflow.NormalizeTags(x.Tags),
	}
}
