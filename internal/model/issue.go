package model

import "time"

// IssueState is the lifecycle state of a tracker issue.
type IssueState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Team is the tracker-side owning team of an issue. For GitHub the repository
// stands in for the team (ID = "owner/repo", Key = owner).
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// User is a tracker user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Label is an opaque tracker label.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Issue is the normalized tracker-native issue record. It is a read-only
// snapshot: re-fetched on every reconciliation, never cached across sessions,
// because the tracker is the source of truth for title/description/labels.
type Issue struct {
	ID          string     `json:"id"`
	Identifier  string     `json:"identifier"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	State       IssueState `json:"state"`
	Team        Team       `json:"team"`
	Assignee    *User      `json:"assignee,omitempty"`
	Labels      []Label    `json:"labels,omitempty"`
	URL         string     `json:"url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Workspace is the tracker workspace/organization the credential belongs to.
type Workspace struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URLKey string `json:"url_key,omitempty"`
}

// Comment is a comment on a tracker issue.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}
