package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	checkpointKey = "crm_sync--customer_feed--cursor"

	// A stale cursor from an old run must not shadow a fresh feed forever.
	checkpointTTL = 48 * time.Hour
)

// CheckpointRepository persists the 1-based position of the last fully
// attempted customer in the feed. Everything else about a run is
// recomputable from source data; this cursor is the only state worth
// keeping across restarts.
type CheckpointRepository struct {
	redis *redis.Client
}

func NewCheckpointRepository(client *redis.Client) *CheckpointRepository {
	return &CheckpointRepository{redis: client}
}

// Load returns the saved position, or 0 when no checkpoint exists.
func (r *CheckpointRepository) Load(ctx context.Context) (int, error) {
	value, err := r.redis.Get(ctx, checkpointKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	position, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt checkpoint value %q: %w", value, err)
	}
	return position, nil
}

// Save records the position of the customer just attempted.
func (r *CheckpointRepository) Save(ctx context.Context, position int) error {
	if err := r.redis.Set(ctx, checkpointKey, strconv.Itoa(position), checkpointTTL).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint after a completed run.
func (r *CheckpointRepository) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, checkpointKey).Err(); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
