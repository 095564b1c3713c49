package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"openswe.dev/manager/core/db"
	"openswe.dev/manager/internal/model"
)

type runStore struct {
	q db.Querier
}

// NewRunStore returns a RunStore backed by Postgres.
func NewRunStore(q db.Querier) RunStore {
	return &runStore{q: q}
}

const runColumns = `id, run_id, thread_id, provider, issue_id, issue_identifier,
	dedupe_key, trigger_label, auto_accept, max_mode, status, input,
	created_at, updated_at`

func scanRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	err := row.Scan(
		&r.ID, &r.RunID, &r.ThreadID, &r.Provider, &r.IssueID, &r.IssueIdentifier,
		&r.DedupeKey, &r.TriggerLabel, &r.AutoAccept, &r.MaxMode, &r.Status, &r.Input,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// CreateOrGet is the idempotency point for webhook deliveries: trackers
// redeliver, and two deliveries with the same dedupe key must produce exactly
// one run. The insert races are settled by the unique index on dedupe_key.
func (s *runStore) CreateOrGet(ctx context.Context, run *model.Run) (*model.Run, bool, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO runs (
			id, run_id, thread_id, provider, issue_id, issue_identifier,
			dedupe_key, trigger_label, auto_accept, max_mode, status, input
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING `+runColumns,
		run.ID, run.RunID, run.ThreadID, run.Provider, run.IssueID, run.IssueIdentifier,
		run.DedupeKey, run.TriggerLabel, run.AutoAccept, run.MaxMode, run.Status, run.Input,
	)

	created, err := scanRun(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("inserting run: %w", err)
	}

	// Conflict: another delivery won the insert.
	existing, err := s.getByDedupeKey(ctx, run.DedupeKey)
	if err != nil {
		return nil, false, fmt.Errorf("fetching existing run for dedupe key %s: %w", run.DedupeKey, err)
	}
	return existing, false, nil
}

func (s *runStore) getByDedupeKey(ctx context.Context, dedupeKey string) (*model.Run, error) {
	return scanRun(s.q.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE dedupe_key = $1`, dedupeKey))
}

func (s *runStore) GetByRunID(ctx context.Context, runID string) (*model.Run, error) {
	return scanRun(s.q.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = $1`, runID))
}

func (s *runStore) UpdateStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE runs SET status = $2, updated_at = now() WHERE run_id = $1`,
		runID, status)
	if err != nil {
		return fmt.Errorf("updating run %s status: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *runStore) ListByIssue(ctx context.Context, provider model.Provider, issueID string, limit int32) ([]model.Run, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE provider = $1 AND issue_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		provider, issueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
