package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"utes-backend/internal/apperr"
)

// runTTL bounds how long an abandoned run lingers. Navigating away never
// persists anything; the key just expires.
const runTTL = 24 * time.Hour

// Store keeps in-flight runs in redis, keyed by owner and run id so one
// user can never load another's run.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func runKey(userID, runID uuid.UUID) string {
	return fmt.Sprintf("run:%s:%s", userID, runID)
}

func (s *Store) Save(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if err := s.redis.Set(ctx, runKey(run.UserID, run.ID), data, runTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID, runID uuid.UUID) (*Run, error) {
	data, err := s.redis.Get(ctx, runKey(userID, runID)).Result()
	if err == redis.Nil {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}

	var run Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

func (s *Store) Delete(ctx context.Context, userID, runID uuid.UUID) error {
	return s.redis.Del(ctx, runKey(userID, runID)).Err()
}
