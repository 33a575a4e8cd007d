package cmd

import "strings"

// classifyPlatform infers the target platform from an idea's wording.
// Defaults to "blog" if no keywords match.
func classifyPlatform(title string) string {
	lower := strings.ToLower(title)

	// Checked in order; the first platform with a matching keyword wins.
	rules := []struct {
		platform string
		keywords []string
	}{
		{"newsletter", []string{"newsletter", "digest", "issue #"}},
		{"youtube", []string{"youtube", "video", "screencast", "livestream", "walkthrough"}},
		{"twitter", []string{"twitter", "tweet", "thread", "x post"}},
		{"linkedin", []string{"linkedin"}},
		{"instagram", []string{"instagram", "reel", "carousel"}},
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.platform
			}
		}
	}
	return "blog"
}

// classifyPriority infers priority from the idea text. High keywords are
// checked before low keywords. Defaults to "medium".
func classifyPriority(title string) string {
	lower := strings.ToLower(title)

	highKeywords := []string{
		"urgent", "asap", "launch", "announcement", "deadline",
		"time-sensitive", "this week", "p0", "p1",
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return "high"
		}
	}

	lowKeywords := []string{
		"someday", "maybe", "nice to have", "evergreen",
		"low priority", "backlog",
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lower, kw) {
			return "low"
		}
	}

	return "medium"
}
