package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"openswe.dev/manager/common/id"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/queue"
	"openswe.dev/manager/internal/store"
)

// RunInput is the state seed stored with a run and handed to the worker. It
// is everything reconciliation needs to originate the session.
type RunInput struct {
	Issue            model.IssueRef      `json:"issue"`
	Workspace        *model.WorkspaceRef `json:"workspace,omitempty"`
	TargetRepository *model.Repository   `json:"target_repository,omitempty"`
	AutoAccept       bool                `json:"auto_accept"`
	MaxMode          bool                `json:"max_mode"`
}

type CreateRunParams struct {
	Provider        model.Provider
	EventType       string
	IssueID         string
	IssueIdentifier *string
	TriggerLabel    string
	Input           RunInput

	// DeliveryID is the tracker's webhook delivery id. When present it
	// anchors the dedupe key; redeliveries of the same delivery collapse
	// into one run.
	DeliveryID *string

	// DedupeKey overrides the computed key entirely.
	DedupeKey *string

	TraceID string
}

type CreateRunResult struct {
	Run *model.Run

	// Created is false when the dedupe key matched an existing run; the
	// returned Run is that earlier run and nothing was enqueued.
	Created bool
}

type RunCreationService interface {
	CreateRun(ctx context.Context, params CreateRunParams) (*CreateRunResult, error)
}

type runCreationService struct {
	runs   store.RunStore
	queue  queue.Producer
	logger *slog.Logger
}

func NewRunCreationService(runs store.RunStore, queue queue.Producer, logger *slog.Logger) RunCreationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &runCreationService{
		runs:   runs,
		queue:  queue,
		logger: logger,
	}
}

func (s *runCreationService) CreateRun(ctx context.Context, params CreateRunParams) (*CreateRunResult, error) {
	if params.Provider == "" || params.IssueID == "" || params.TriggerLabel == "" {
		return nil, fmt.Errorf("provider, issue_id, and trigger_label are required")
	}

	dedupeKey, err := computeDedupeKey(params)
	if err != nil {
		return nil, err
	}

	input, err := json.Marshal(params.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal run input: %w", err)
	}

	run := &model.Run{
		ID:              id.New(),
		RunID:           uuid.NewString(),
		ThreadID:        uuid.NewString(),
		Provider:        params.Provider,
		IssueID:         params.IssueID,
		IssueIdentifier: params.IssueIdentifier,
		DedupeKey:       dedupeKey,
		TriggerLabel:    params.TriggerLabel,
		AutoAccept:      params.Input.AutoAccept,
		MaxMode:         params.Input.MaxMode,
		Status:          model.RunStatusPending,
		Input:           input,
	}

	run, created, err := s.runs.CreateOrGet(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	if created {
		if err := s.queue.Enqueue(ctx, queue.RunMessage{
			RunID:        run.RunID,
			ThreadID:     run.ThreadID,
			Provider:     string(run.Provider),
			IssueID:      run.IssueID,
			TriggerLabel: run.TriggerLabel,
			TraceID:      params.TraceID,
			Attempt:      1,
		}); err != nil {
			return nil, fmt.Errorf("enqueueing run: %w", err)
		}
	} else {
		s.logger.InfoContext(ctx, "duplicate trigger deduped", "run_id", run.RunID, "issue_id", run.IssueID, "dedupe_key", dedupeKey)
	}

	return &CreateRunResult{Run: run, Created: created}, nil
}

func computeDedupeKey(params CreateRunParams) (string, error) {
	if params.DedupeKey != nil && *params.DedupeKey != "" {
		return *params.DedupeKey, nil
	}

	if params.DeliveryID != nil && *params.DeliveryID != "" {
		return fmt.Sprintf("%s:%s:%s", params.Provider, params.EventType, *params.DeliveryID), nil
	}

	body := struct {
		Provider     model.Provider `json:"provider"`
		EventType    string         `json:"event_type"`
		IssueID      string         `json:"issue_id"`
		TriggerLabel string         `json:"trigger_label"`
	}{
		Provider:     params.Provider,
		EventType:    params.EventType,
		IssueID:      params.IssueID,
		TriggerLabel: params.TriggerLabel,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal dedupe payload: %w", err)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", params.Provider, hex.EncodeToString(hash[:])), nil
}
