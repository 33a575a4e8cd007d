package content

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/joescharf/cadence/internal/models"
)

var (
	validStatuses   = []any{models.ContentStatusIdea, models.ContentStatusDraft, models.ContentStatusScheduled, models.ContentStatusPublished}
	validPlatforms  = []any{models.PlatformBlog, models.PlatformTwitter, models.PlatformLinkedIn, models.PlatformYouTube, models.PlatformInstagram, models.PlatformNewsletter}
	validPriorities = []any{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}
)

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

var (
	titleRules    = []validation.Rule{validation.Required.Error("title is required"), validation.By(notBlank)}
	statusRules   = []validation.Rule{validation.Required, validation.In(validStatuses...).Error("unknown status")}
	platformRules = []validation.Rule{validation.Required, validation.In(validPlatforms...).Error("unknown platform")}
	priorityRules = []validation.Rule{validation.Required, validation.In(validPriorities...).Error("unknown priority")}
)

func validateItem(item *models.ContentItem) error {
	err := validation.ValidateStruct(item,
		validation.Field(&item.Title, titleRules...),
		validation.Field(&item.Status, statusRules...),
		validation.Field(&item.Platform, platformRules...),
		validation.Field(&item.Priority, priorityRules...),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func validatePatch(p models.ContentPatch) error {
	errs := validation.Errors{}
	if p.Title != nil {
		errs["title"] = validation.Validate(*p.Title, titleRules...)
	}
	if p.Status != nil {
		errs["status"] = validation.Validate(*p.Status, statusRules...)
	}
	if p.Platform != nil {
		errs["platform"] = validation.Validate(*p.Platform, platformRules...)
	}
	if p.Priority != nil {
		errs["priority"] = validation.Validate(*p.Priority, priorityRules...)
	}
	if err := errs.Filter(); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func validateStages(stages []models.WorkflowStage) error {
	seen := make(map[models.ContentStatus]bool)
	for i := range stages {
		st := &stages[i]
		err := validation.ValidateStruct(st,
			validation.Field(&st.ID, statusRules...),
			validation.Field(&st.Label, validation.Required.Error("label is required")),
			validation.Field(&st.WIPLimit, validation.Min(0).Error("wip limit must not be negative")),
		)
		if err != nil {
			return &ValidationError{Err: fmt.Errorf("stage %d: %w", i, err)}
		}
		if seen[st.ID] {
			return &ValidationError{Err: fmt.Errorf("stage %s listed twice", st.ID)}
		}
		seen[st.ID] = true
	}
	return nil
}
