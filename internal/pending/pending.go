// Package pending tracks the single in-flight generation job a client may
// resume polling after a reload.
package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"utes-backend/internal/models"
)

// KV is the storage surface the tracker needs. The redis client satisfies
// it through RedisKV; tests use an in-memory map.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
}

// pendingTTL caps how long a dangling job id survives; a job that has not
// finished in an hour is not worth resuming.
const pendingTTL = time.Hour

type Tracker struct {
	kv KV
}

func NewTracker(kv KV) *Tracker {
	return &Tracker{kv: kv}
}

func pendingKey(userID uuid.UUID) string {
	return "pending_job:" + userID.String()
}

// Set records the user's in-flight job, replacing any previous one. At
// most one job is tracked per user.
func (t *Tracker) Set(ctx context.Context, userID uuid.UUID, job models.PendingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode pending job: %w", err)
	}
	return t.kv.Set(ctx, pendingKey(userID), string(data), pendingTTL)
}

// Get returns the tracked job, or nil when none is pending.
func (t *Tracker) Get(ctx context.Context, userID uuid.UUID) (*models.PendingJob, error) {
	data, ok, err := t.kv.Get(ctx, pendingKey(userID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var job models.PendingJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to decode pending job: %w", err)
	}
	return &job, nil
}

// Clear drops the tracked job once a terminal status has been observed.
func (t *Tracker) Clear(ctx context.Context, userID uuid.UUID) error {
	return t.kv.Del(ctx, pendingKey(userID))
}
