package workflow

import (
	"fmt"

	"github.com/uiprobe/uiprobe/internal/events"
	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

// Canned patches keyed by the axe rule they address. The fallback covers
// rules without a specific snippet.
var fixSnippets = map[string]string{
	"button-name":    "```tsx\n<button aria-label=\"Close dialog\" onClick={onClose}>\n  <CloseIcon />\n</button>\n```",
	"image-alt":      "```tsx\n<img src={avatarUrl} alt={`${user.name} avatar`} />\n```",
	"color-contrast": "```css\n.hint-text {\n  color: #595959; /* was #9e9e9e, 2.8:1 against white */\n}\n```",
	"label":          "```tsx\n<label htmlFor=\"email\">Email</label>\n<input id=\"email\" type=\"email\" value={email} onChange={onChange} />\n```",
}

const fallbackSnippet = "```tsx\n// annotate the interactive element with an accessible name\n<div role=\"group\" aria-label=\"Filters\">{children}</div>\n```"

// suggestionFor turns a failing accessibility result into the fix the agent
// proposes before the next attempt. The markdown body targets the most
// severe finding; the violation list carries everything the audit reported.
func suggestionFor(p componentProfile, tr report.TestResult, attempt int) events.FixSuggestion {
	msgs := make([]string, 0, len(tr.Issues))
	for _, issue := range tr.Issues {
		msgs = append(msgs, issue.Rule+": "+issue.Message)
	}

	lead := "accessibility audit failed"
	snippet := fallbackSnippet
	if len(tr.Issues) > 0 {
		lead = tr.Issues[0].Message
		if s, ok := fixSnippets[tr.Issues[0].Rule]; ok {
			snippet = s
		}
	}

	severity := 2
	if tr.Violations.Critical > 0 {
		severity = 1
	}

	return events.FixSuggestion{
		TestType:     string(scoring.Accessibility),
		Violations:   msgs,
		SuggestedFix: snippet,
		Explanation: fmt.Sprintf("fix attempt %d for %s: %s (score %d, needs %d)",
			attempt, p.name, lead, tr.Score, tr.PassThreshold),
		FilePath: p.path,
		Severity: severity,
	}
}
