package model

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle status of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one execution instance of the coding-agent workflow, created from a
// tracker webhook. Runs are append-only: a run is never rolled back once
// created, even if the acknowledgement comment fails afterwards.
type Run struct {
	ID              int64           `json:"id"`
	RunID           string          `json:"run_id"`
	ThreadID        string          `json:"thread_id"`
	Provider        Provider        `json:"provider"`
	IssueID         string          `json:"issue_id"`
	IssueIdentifier *string         `json:"issue_identifier,omitempty"`
	DedupeKey       string          `json:"dedupe_key"`
	TriggerLabel    string          `json:"trigger_label"`
	AutoAccept      bool            `json:"auto_accept"`
	MaxMode         bool            `json:"max_mode"`
	Status          RunStatus       `json:"status"`
	Input           json.RawMessage `json:"input,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
