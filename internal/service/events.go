package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/model"
)

// EventPublisher broadcasts session events to quiz monitors.
type EventPublisher interface {
	Publish(ctx context.Context, e model.SessionEvent) error
}

// ScoreQueue hands completed sessions to the scoring worker.
type ScoreQueue interface {
	Enqueue(ctx context.Context, job model.ScoreJob) error
}

// RedisBus publishes events over Redis Pub/Sub and queues score jobs on a
// Redis list.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates a new RedisBus.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, e model.SessionEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, config.CacheKey.QuizMonitorChannel(e.QuizID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Enqueue(ctx context.Context, job model.ScoreJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode score job: %w", err)
	}
	if err := b.rdb.RPush(ctx, config.WorkerKey.ScoreSessionsQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue score job: %w", err)
	}
	return nil
}

// Subscribe attaches to the monitor channel of one quiz. The caller closes
// the returned PubSub.
func (b *RedisBus) Subscribe(ctx context.Context, quizID uuid.UUID) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.QuizMonitorChannel(quizID))
}
