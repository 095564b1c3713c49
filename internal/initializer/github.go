package initializer

import (
	"context"
	"fmt"

	"openswe.dev/manager/internal/graph"
	"openswe.dev/manager/internal/model"
)

func (s *Service) initializeGitHub(ctx context.Context, state *model.SessionState, cfg graph.Config) (model.StateUpdate, error) {
	if cfg.LocalMode {
		s.logger.DebugContext(ctx, "local mode, skipping issue reconciliation")
		return model.StateUpdate{}, nil
	}
	if cfg.GitHubToken == "" {
		return model.StateUpdate{}, fmt.Errorf("github: %w", ErrMissingCredential)
	}

	if state.HasHumanMessage() {
		return s.continueSession(ctx, state, s.newGitHub(cfg.GitHubToken))
	}
	return s.originateSession(ctx, state, s.newGitHub(cfg.GitHubToken), model.SourceGitHubIssueWebhook)
}
