package model

// IssueRef points session state at the external issue that drives it.
type IssueRef struct {
	Provider Provider `json:"provider"`
	ID       string   `json:"id"`
}

// WorkspaceRef scopes a session to a tracker workspace and team so downstream
// comments and writes land in the right place.
type WorkspaceRef struct {
	WorkspaceID string `json:"workspace_id"`
	TeamID      string `json:"team_id,omitempty"`
}

// Repository is the target repository the agent works against.
type Repository struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// SessionState is the durable, workflow-scoped record threaded through every
// graph node. Each run owns an exclusive copy; nodes mutate it only through
// returned StateUpdates, which the engine merges.
type SessionState struct {
	Messages         []ChatMessage `json:"messages"`
	TaskPlan         *TaskPlan     `json:"task_plan,omitempty"`
	Issue            *IssueRef     `json:"issue,omitempty"`
	Workspace        *WorkspaceRef `json:"workspace,omitempty"`
	TargetRepository *Repository   `json:"target_repository,omitempty"`
}

// HasHumanMessage reports whether any message in the session so far was
// human-originated. This is what distinguishes a continuation turn from an
// origination turn.
func (s *SessionState) HasHumanMessage() bool {
	for _, m := range s.Messages {
		if m.IsHuman() {
			return true
		}
	}
	return false
}

// StateUpdate is a partial update returned by a node. Messages append;
// every other field replaces the state's value when non-nil
// (last-write-per-field semantics).
type StateUpdate struct {
	Messages         []ChatMessage `json:"messages,omitempty"`
	TaskPlan         *TaskPlan     `json:"task_plan,omitempty"`
	Issue            *IssueRef     `json:"issue,omitempty"`
	Workspace        *WorkspaceRef `json:"workspace,omitempty"`
	TargetRepository *Repository   `json:"target_repository,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u StateUpdate) IsEmpty() bool {
	return len(u.Messages) == 0 && u.TaskPlan == nil && u.Issue == nil &&
		u.Workspace == nil && u.TargetRepository == nil
}

// Apply merges a partial update into the state.
func (s *SessionState) Apply(u StateUpdate) {
	s.Messages = append(s.Messages, u.Messages...)
	if u.TaskPlan != nil {
		s.TaskPlan = u.TaskPlan
	}
	if u.Issue != nil {
		s.Issue = u.Issue
	}
	if u.Workspace != nil {
		s.Workspace = u.Workspace
	}
	if u.TargetRepository != nil {
		s.TargetRepository = u.TargetRepository
	}
}
