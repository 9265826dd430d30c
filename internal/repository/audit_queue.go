package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/model"
)

// AuditQueue buffers audit entries in a Redis list until the audit worker
// writes them to PostgreSQL.
type AuditQueue struct {
	rdb *redis.Client
	key string
}

// NewAuditQueue creates a new AuditQueue on the configured queue key.
func NewAuditQueue(rdb *redis.Client) *AuditQueue {
	return &AuditQueue{rdb: rdb, key: config.WorkerKey.PersistAuditQueue}
}

// Enqueue appends one entry to the queue.
func (q *AuditQueue) Enqueue(ctx context.Context, entry model.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

// Pop blocks up to timeout for the next raw entry. It returns ok=false when
// the queue stayed empty.
func (q *AuditQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(res) < 2 {
		return "", false, nil
	}
	return res[1], true, nil
}

// TryPop removes the next raw entry without blocking.
func (q *AuditQueue) TryPop(ctx context.Context) (string, bool, error) {
	raw, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

// Requeue pushes raw entries back in one pipeline.
func (q *AuditQueue) Requeue(ctx context.Context, raws []string) error {
	if len(raws) == 0 {
		return nil
	}
	pipe := q.rdb.Pipeline()
	for _, raw := range raws {
		pipe.RPush(ctx, q.key, raw)
	}
	_, err := pipe.Exec(ctx)
	return err
}
