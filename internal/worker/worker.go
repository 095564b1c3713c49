// Package worker consumes run messages from the queue and drives the manager
// workflow for each one.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"openswe.dev/manager/common/logger"
	"openswe.dev/manager/internal/graph"
	"openswe.dev/manager/internal/initializer"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/queue"
	"openswe.dev/manager/internal/service"
	"openswe.dev/manager/internal/store"
)

type Config struct {
	MaxAttempts int

	LinearAPIKey string
	GitHubToken  string
	LocalMode    bool

	PlannerModel    string
	ProgrammerModel string

	// MaxModel replaces both planner and programmer models for runs
	// triggered by an escalated label.
	MaxModel string
}

type Worker struct {
	consumer *queue.RedisConsumer
	runs     store.RunStore
	workflow *graph.Graph
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, runs store.RunStore, workflow *graph.Graph, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		runs:      runs,
		workflow:  workflow,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "run processing failed",
				"error", err,
				"message_id", msg.ID,
				"run_id", msg.Run.RunID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in run processing",
				"panic", r,
				"message_id", msg.ID,
				"run_id", msg.Run.RunID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage executes one run end to end. Exported so it can be reused by
// the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.Run.TraceID, "worker.process_run")
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     logger.Ptr(msg.Run.RunID),
		ThreadID:  logger.Ptr(msg.Run.ThreadID),
		IssueID:   logger.Ptr(msg.Run.IssueID),
		Tracker:   logger.Ptr(msg.Run.Provider),
		MessageID: logger.Ptr(msg.ID),
		Component: "manager.worker",
	})

	slog.InfoContext(ctx, "processing run", "attempt", msg.Run.Attempt)

	run, err := w.runs.GetByRunID(ctx, msg.Run.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The run row is written before the message is enqueued, so a
			// missing row means it was deleted; retrying won't bring it back.
			slog.WarnContext(ctx, "run not found, dropping message")
			return w.consumer.Ack(ctx, msg)
		}
		return fmt.Errorf("loading run: %w", err)
	}

	if run.Status == model.RunStatusCompleted {
		slog.InfoContext(ctx, "run already completed, dropping redelivery")
		return w.consumer.Ack(ctx, msg)
	}

	if err := w.runs.UpdateStatus(ctx, run.RunID, model.RunStatusRunning); err != nil {
		return fmt.Errorf("marking run running: %w", err)
	}

	state, cfg, err := w.prepare(run)
	if err != nil {
		sc.RecordError(err)
		_ = w.runs.UpdateStatus(ctx, run.RunID, model.RunStatusFailed)
		return err
	}

	if err := w.workflow.Run(ctx, state, cfg); err != nil {
		sc.RecordError(err)
		if statusErr := w.runs.UpdateStatus(ctx, run.RunID, model.RunStatusFailed); statusErr != nil {
			slog.ErrorContext(ctx, "failed to mark run failed", "error", statusErr)
		}
		return fmt.Errorf("executing workflow: %w", err)
	}

	if err := w.runs.UpdateStatus(ctx, run.RunID, model.RunStatusCompleted); err != nil {
		return fmt.Errorf("marking run completed: %w", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be reclaimed; the completed status makes the
		// redelivery a no-op.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "run completed")
	return nil
}

// prepare builds the session state and workflow config for a run from its
// stored input.
func (w *Worker) prepare(run *model.Run) (*model.SessionState, graph.Config, error) {
	var input service.RunInput
	if len(run.Input) > 0 {
		if err := json.Unmarshal(run.Input, &input); err != nil {
			return nil, graph.Config{}, fmt.Errorf("decoding run input: %w", err)
		}
	}

	state := &model.SessionState{
		Workspace:        input.Workspace,
		TargetRepository: input.TargetRepository,
	}
	if input.Issue.ID != "" {
		state.Issue = &input.Issue
	} else {
		state.Issue = &model.IssueRef{Provider: run.Provider, ID: run.IssueID}
	}

	cfg := graph.Config{
		Provider:            run.Provider,
		LinearAPIKey:        w.cfg.LinearAPIKey,
		GitHubToken:         w.cfg.GitHubToken,
		LocalMode:           w.cfg.LocalMode,
		PlannerModelName:    w.cfg.PlannerModel,
		ProgrammerModelName: w.cfg.ProgrammerModel,
	}
	if run.MaxMode {
		cfg.PlannerModelName = w.cfg.MaxModel
		cfg.ProgrammerModelName = w.cfg.MaxModel
	}

	return state, cfg, nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	// Configuration errors are permanent; retrying cannot fix a missing
	// credential or issue reference.
	if errors.Is(err, initializer.ErrConfiguration) {
		slog.ErrorContext(ctx, "permanent configuration error, sending to DLQ",
			"message_id", msg.ID,
			"run_id", msg.Run.RunID)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	if msg.Run.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"run_id", msg.Run.RunID,
			"attempts", msg.Run.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed run",
		"message_id", msg.ID,
		"run_id", msg.Run.RunID,
		"attempt", msg.Run.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
