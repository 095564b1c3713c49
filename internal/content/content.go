// Package content translates tracker issue records to and from canonical
// session content: rendering an issue into the chat message that seeds a
// session, and recovering a task plan embedded in an issue description.
package content

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"openswe.dev/manager/internal/model"
)

// TaskPlanMarker precedes the fenced JSON task-plan block the agent writes
// into issue descriptions. The grammar is shared across trackers.
const TaskPlanMarker = "<!-- open-swe-task-plan -->"

// IssueMessage renders an issue into the message content a session starts
// from. The format is deterministic and idempotent: bold title, the
// description when non-empty, and a footer identifying the tracker-native
// identifier and owning team.
func IssueMessage(issue *model.Issue, provider model.Provider) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", issue.Title)

	if desc := strings.TrimSpace(issue.Description); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(issue.Description)
	}

	switch provider {
	case model.ProviderLinear:
		fmt.Fprintf(&b, "\n\n---\n*Linear Issue: %s | Team: %s*", issue.Identifier, issue.Team.Name)
	default:
		fmt.Fprintf(&b, "\n\n---\n*GitHub Issue: %s | Repo: %s*", issue.Identifier, issue.Team.Name)
	}

	return b.String()
}

// ExtractTaskPlan recovers a task plan from an issue description, or returns
// nil when none is present. Malformed content is never an error: the agent
// must tolerate humans editing descriptions freely.
func ExtractTaskPlan(description string) *model.TaskPlan {
	_, after, found := strings.Cut(description, TaskPlanMarker)
	if !found {
		return nil
	}

	_, block, found := strings.Cut(after, "```json")
	if !found {
		return nil
	}
	block, _, found = strings.Cut(block, "```")
	if !found {
		return nil
	}

	var plan model.TaskPlan
	if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &plan); err != nil {
		return nil
	}
	if len(plan.Items) == 0 {
		return nil
	}
	return &plan
}

// IssueReference formats a short human-readable reference for an issue.
func IssueReference(issue *model.Issue) string {
	return fmt.Sprintf("%s: %s", issue.Identifier, issue.Title)
}

var issueIdentifierRe = regexp.MustCompile(`[A-Z][A-Z0-9]*-\d+`)

// ExtractIssueIdentifier finds the first Linear-style issue identifier
// (e.g. "ENG-123") in the input.
func ExtractIssueIdentifier(s string) (string, bool) {
	m := issueIdentifierRe.FindString(s)
	return m, m != ""
}

// ContainsIssueReference reports whether the content mentions any
// Linear-style issue identifier.
func ContainsIssueReference(s string) bool {
	return issueIdentifierRe.MatchString(s)
}
