// Package initializer reconciles a session against its issue tracker at the
// start of a run. Originating sessions get exactly one message synthesized
// from the issue; continuing sessions only refresh their task plan from the
// tracker, which is the source of truth for plan content.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"openswe.dev/manager/internal/content"
	"openswe.dev/manager/internal/graph"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/tracker"
	"openswe.dev/manager/internal/tracker/github"
	"openswe.dev/manager/internal/tracker/linear"
)

// ErrConfiguration covers every failure caused by run configuration rather
// than tracker state. Callers match it with errors.Is to separate operator
// mistakes from transient tracker failures.
var ErrConfiguration = errors.New("run configuration invalid")

var (
	ErrMissingCredential       = fmt.Errorf("%w: tracker credential not set", ErrConfiguration)
	ErrMissingIssueRef         = fmt.Errorf("%w: session has no issue reference", ErrConfiguration)
	ErrMissingTargetRepository = fmt.Errorf("%w: session has no target repository", ErrConfiguration)
)

// ClientFactory builds a tracker client from a credential.
type ClientFactory func(credential string) tracker.Client

// Service performs issue reconciliation. Client factories are injectable so
// tests can observe exactly which tracker calls a reconciliation makes.
type Service struct {
	logger    *slog.Logger
	newLinear ClientFactory
	newGitHub ClientFactory
}

type Option func(*Service)

func WithLinearFactory(f ClientFactory) Option {
	return func(s *Service) { s.newLinear = f }
}

func WithGitHubFactory(f ClientFactory) Option {
	return func(s *Service) { s.newGitHub = f }
}

func NewService(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		logger: logger,
		newLinear: func(credential string) tracker.Client {
			return linear.NewClient(credential)
		},
		newGitHub: func(credential string) tracker.Client {
			return github.NewClient(credential)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize routes reconciliation by the run's tracker. Unrecognized
// providers fall through to GitHub, which predates the provider field on run
// configuration.
func (s *Service) Initialize(ctx context.Context, state *model.SessionState, cfg graph.Config) (model.StateUpdate, error) {
	switch cfg.Provider {
	case model.ProviderLinear:
		return s.initializeLinear(ctx, state, cfg)
	default:
		return s.initializeGitHub(ctx, state, cfg)
	}
}

// Node adapts the service into a workflow node.
func (s *Service) Node() graph.NodeFunc {
	return func(ctx context.Context, state *model.SessionState, cfg graph.Config) (graph.Result, error) {
		update, err := s.Initialize(ctx, state, cfg)
		if err != nil {
			return graph.Result{}, err
		}
		return graph.Result{Update: update}, nil
	}
}

// continueSession refreshes the task plan for a session that already has
// human input. The tracker wins: a plan recovered from the issue description
// replaces whatever the session carried, and nothing else changes. A session
// without an issue reference has nothing to refresh.
func (s *Service) continueSession(ctx context.Context, state *model.SessionState, client tracker.Client) (model.StateUpdate, error) {
	if state.Issue == nil {
		return model.StateUpdate{}, nil
	}

	issue, err := client.GetIssue(ctx, state.Issue.ID)
	if err != nil {
		return model.StateUpdate{}, fmt.Errorf("refreshing issue %s: %w", state.Issue.ID, err)
	}

	plan := content.ExtractTaskPlan(issue.Description)
	if plan == nil {
		return model.StateUpdate{}, nil
	}

	s.logger.DebugContext(ctx, "recovered task plan from issue",
		slog.String("issue_id", issue.ID),
		slog.Int("items", len(plan.Items)),
	)
	return model.StateUpdate{TaskPlan: plan}, nil
}

// originateSession seeds a brand-new session from its issue: one human
// message rendered from the issue content, the owning team as workspace
// scope, and any task plan already embedded in the description. Configuration
// is validated before any tracker call is made.
func (s *Service) originateSession(ctx context.Context, state *model.SessionState, client tracker.Client, source model.RequestSource) (model.StateUpdate, error) {
	if state.Issue == nil {
		return model.StateUpdate{}, ErrMissingIssueRef
	}
	if state.TargetRepository == nil {
		return model.StateUpdate{}, ErrMissingTargetRepository
	}

	issue, err := client.GetIssue(ctx, state.Issue.ID)
	if err != nil {
		return model.StateUpdate{}, fmt.Errorf("fetching issue %s: %w", state.Issue.ID, err)
	}

	update := model.StateUpdate{
		Messages: []model.ChatMessage{{
			ID:      uuid.NewString(),
			Role:    model.RoleHuman,
			Content: content.IssueMessage(issue, state.Issue.Provider),
			Kwargs: model.MessageKwargs{
				RequestSource:   source,
				IsOriginalIssue: true,
				IssueID:         issue.ID,
			},
		}},
		Workspace: &model.WorkspaceRef{WorkspaceID: issue.Team.ID, TeamID: issue.Team.ID},
		TaskPlan:  content.ExtractTaskPlan(issue.Description),
	}

	s.logger.InfoContext(ctx, "originated session from issue",
		slog.String("issue_id", issue.ID),
		slog.String("issue_identifier", issue.Identifier),
		slog.Bool("has_plan", update.TaskPlan != nil),
	)
	return update, nil
}
