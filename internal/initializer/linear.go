package initializer

import (
	"context"
	"fmt"

	"openswe.dev/manager/internal/graph"
	"openswe.dev/manager/internal/model"
)

func (s *Service) initializeLinear(ctx context.Context, state *model.SessionState, cfg graph.Config) (model.StateUpdate, error) {
	if cfg.LocalMode {
		s.logger.DebugContext(ctx, "local mode, skipping issue reconciliation")
		return model.StateUpdate{}, nil
	}
	if cfg.LinearAPIKey == "" {
		return model.StateUpdate{}, fmt.Errorf("linear: %w", ErrMissingCredential)
	}

	if state.HasHumanMessage() {
		return s.continueSession(ctx, state, s.newLinear(cfg.LinearAPIKey))
	}
	return s.originateSession(ctx, state, s.newLinear(cfg.LinearAPIKey), model.SourceLinearIssueWebhook)
}
