// Package tracker defines the contract every issue-tracker client fulfils.
// Implementations live in subpackages; callers depend only on this interface
// and its sentinel errors.
package tracker

import (
	"context"
	"errors"

	"openswe.dev/manager/internal/model"
)

// ErrNotFound is returned when an issue, team, or user does not exist in the
// tracker. Fatal for the reconciliation that needed it.
var ErrNotFound = errors.New("not found")

// ErrAuth is returned when the tracker rejects our credential.
var ErrAuth = errors.New("authentication failed")

// Client performs authenticated reads/writes against one tracker. All calls
// are network requests and may fail with ErrNotFound, ErrAuth, or a transport
// error; no retries happen at this layer.
type Client interface {
	// GetIssue fetches an issue by tracker-native id or human-readable
	// identifier. A response with no owning team is an error: downstream
	// routing needs a team to scope comments and writes.
	GetIssue(ctx context.Context, idOrIdentifier string) (*model.Issue, error)

	// GetWorkspace returns the workspace/organization the credential
	// belongs to.
	GetWorkspace(ctx context.Context) (*model.Workspace, error)

	// GetTeam fetches a team by id or key.
	GetTeam(ctx context.Context, idOrKey string) (*model.Team, error)

	// CreateComment posts a comment on an issue.
	CreateComment(ctx context.Context, issueID, body string) (*model.Comment, error)

	// GetComments lists comments on an issue.
	GetComments(ctx context.Context, issueID string) ([]model.Comment, error)

	// UpdateIssueState moves an issue to another lifecycle state.
	UpdateIssueState(ctx context.Context, issueID, state string) error
}
