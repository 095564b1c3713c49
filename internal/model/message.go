package model

// MessageRole tags the origin of a chat message.
type MessageRole string

const (
	RoleHuman     MessageRole = "human"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// RequestSource records which surface produced a message.
type RequestSource string

const (
	SourceLinearIssueWebhook RequestSource = "linear_issue_webhook"
	SourceGitHubIssueWebhook RequestSource = "github_issue_webhook"
	SourceCLI                RequestSource = "cli"
)

// MessageKwargs carries free-form metadata attached to a chat message.
type MessageKwargs struct {
	RequestSource RequestSource `json:"request_source,omitempty"`

	// IsOriginalIssue marks the single message synthesized from the issue
	// that originated the session. Never set on more than one message per
	// issue.
	IsOriginalIssue bool `json:"is_original_issue,omitempty"`

	// IssueID is the tracker-native id of the issue this message was
	// rendered from, when applicable.
	IssueID string `json:"issue_id,omitempty"`
}

// ChatMessage is one unit of session conversation. Messages are append-only;
// nodes return new messages, they never mutate existing ones.
type ChatMessage struct {
	ID      string        `json:"id"`
	Role    MessageRole   `json:"role"`
	Content string        `json:"content"`
	Kwargs  MessageKwargs `json:"kwargs,omitempty"`
}

func (m ChatMessage) IsHuman() bool {
	return m.Role == RoleHuman
}
