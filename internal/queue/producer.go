package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RunMessage is the unit of work handed from the webhook server to the
// worker: execute one workflow run. The run row already exists when the
// message is enqueued; the message only names it.
type RunMessage struct {
	RunID        string
	ThreadID     string
	Provider     string
	IssueID      string
	TriggerLabel string
	TraceID      string
	Attempt      int
}

type Producer interface {
	Enqueue(ctx context.Context, msg RunMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg RunMessage) error {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: messageValues(msg, attempt),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue run: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued run", "run_id", msg.RunID, "issue_id", msg.IssueID, "trigger_label", msg.TriggerLabel, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func messageValues(msg RunMessage, attempt int) map[string]any {
	values := map[string]any{
		"run_id":    msg.RunID,
		"thread_id": msg.ThreadID,
		"provider":  msg.Provider,
		"issue_id":  msg.IssueID,
		"attempt":   attempt,
	}
	if msg.TriggerLabel != "" {
		values["trigger_label"] = msg.TriggerLabel
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}
