package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// NotifyDedup guards decision notifications against duplicate delivery
// attempts. Key format: notify:<decision_id>
type NotifyDedup struct {
	client *redis.Client
}

// NewNotifyDedup creates a NotifyDedup wrapping the given Redis client.
func NewNotifyDedup(client *redis.Client) *NotifyDedup {
	return &NotifyDedup{client: client}
}

// IsDuplicate reports whether a delivery attempt was already made for this decision.
func (d *NotifyDedup) IsDuplicate(ctx context.Context, decisionID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(decisionID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that a delivery attempt was made (expires after dedupTTL).
func (d *NotifyDedup) Mark(ctx context.Context, decisionID string) error {
	return d.client.Set(ctx, d.key(decisionID), "1", dedupTTL).Err()
}

func (d *NotifyDedup) key(decisionID string) string {
	return "notify:" + decisionID
}
