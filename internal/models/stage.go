package models

// WorkflowStage is a user-customizable board column.
type WorkflowStage struct {
	ID       ContentStatus `json:"id"`
	Label    string        `json:"label"`
	WIPLimit int           `json:"wipLimit"` // 0 = unlimited
	Color    string        `json:"color"`
}

// DefaultStages returns the stages used until a user saves their own.
func DefaultStages() []WorkflowStage {
	return []WorkflowStage{
		{ID: ContentStatusIdea, Label: "Ideas", WIPLimit: 0, Color: "#8b5cf6"},
		{ID: ContentStatusDraft, Label: "Drafts", WIPLimit: 5, Color: "#f59e0b"},
		{ID: ContentStatusScheduled, Label: "Scheduled", WIPLimit: 0, Color: "#3b82f6"},
		{ID: ContentStatusPublished, Label: "Published", WIPLimit: 0, Color: "#10b981"},
	}
}
