package service

import (
	"context"
	"fmt"
	"log/slog"

	"openswe.dev/manager/common/logger"
	"openswe.dev/manager/internal/label"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/tracker"
)

// IssueLabeledEvent is the normalized "someone put a label on an issue" event
// both webhook handlers produce. Issue is the payload's snapshot; it is used
// only for identifiers and logging, the worker re-fetches the issue itself.
type IssueLabeledEvent struct {
	Provider   model.Provider
	Label      string
	Issue      model.Issue
	DeliveryID *string
	TraceID    string

	// TargetRepository overrides the configured default when the event
	// itself names a repository (GitHub events always do).
	TargetRepository *model.Repository
}

type IngestResult struct {
	Run *model.Run

	// Skipped is true when the label is not a trigger label; no run exists.
	Skipped bool

	// Created mirrors CreateRunResult.Created.
	Created bool
}

type IssueIngestService interface {
	HandleIssueLabeled(ctx context.Context, event IssueLabeledEvent) (*IngestResult, error)
}

type issueIngestService struct {
	runs       RunCreationService
	clients    map[model.Provider]tracker.Client
	targetRepo *model.Repository
	logger     *slog.Logger
}

// NewIssueIngestService wires label filtering, workspace resolution, run
// creation, and the acknowledgement comment. targetRepo is the configured
// default repository; clients holds one tracker client per enabled provider.
func NewIssueIngestService(runs RunCreationService, clients map[model.Provider]tracker.Client, targetRepo *model.Repository, log *slog.Logger) IssueIngestService {
	if log == nil {
		log = slog.Default()
	}
	return &issueIngestService{
		runs:       runs,
		clients:    clients,
		targetRepo: targetRepo,
		logger:     log,
	}
}

func (s *issueIngestService) HandleIssueLabeled(ctx context.Context, event IssueLabeledEvent) (*IngestResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueID:    logger.Ptr(event.Issue.ID),
		Tracker:    logger.Ptr(string(event.Provider)),
		Label:      logger.Ptr(event.Label),
		DeliveryID: event.DeliveryID,
	})

	if !label.IsTrigger(event.Label) {
		s.logger.DebugContext(ctx, "label is not a trigger, skipping")
		return &IngestResult{Skipped: true}, nil
	}

	// Establish tracker context before creating anything: a provider without
	// a working credential must not produce a run.
	client, ok := s.clients[event.Provider]
	if !ok {
		return nil, fmt.Errorf("no tracker client for provider %s", event.Provider)
	}
	workspace, err := client.GetWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	target := event.TargetRepository
	if target == nil {
		target = s.targetRepo
	}

	var identifier *string
	if event.Issue.Identifier != "" {
		identifier = &event.Issue.Identifier
	}

	result, err := s.runs.CreateRun(ctx, CreateRunParams{
		Provider:        event.Provider,
		EventType:       "issues.labeled",
		IssueID:         event.Issue.ID,
		IssueIdentifier: identifier,
		TriggerLabel:    event.Label,
		DeliveryID:      event.DeliveryID,
		TraceID:         event.TraceID,
		Input: RunInput{
			Issue:            model.IssueRef{Provider: event.Provider, ID: event.Issue.ID},
			Workspace:        &model.WorkspaceRef{WorkspaceID: workspace.ID, TeamID: event.Issue.Team.ID},
			TargetRepository: target,
			AutoAccept:       label.IsAutoAccept(event.Label),
			MaxMode:          label.IsMax(event.Label),
		},
	})
	if err != nil {
		return nil, err
	}

	// Only the delivery that created the run posts the acknowledgement;
	// dedupe means redeliveries stay silent.
	if result.Created {
		if _, err := client.CreateComment(ctx, event.Issue.ID, ackComment(result.Run)); err != nil {
			// The run is already enqueued and will not be rolled back.
			return nil, fmt.Errorf("posting acknowledgement comment: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "issue label handled",
		"run_id", result.Run.RunID,
		"created", result.Created,
		"auto_accept", result.Run.AutoAccept,
		"max_mode", result.Run.MaxMode,
	)

	return &IngestResult{Run: result.Run, Created: result.Created}, nil
}

// ackComment includes a hidden marker so later deliveries and humans can find
// the run a comment belongs to.
func ackComment(run *model.Run) string {
	return fmt.Sprintf(
		"🤖 Open SWE has been triggered for this issue. Progress will be posted here.\n\n"+
			"<!-- Open SWE Run: %s | Thread: %s -->",
		run.RunID, run.ThreadID,
	)
}
