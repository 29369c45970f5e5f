package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "auth:revoked:"

// Denylist records revoked session ids until their tokens would have expired.
type Denylist struct {
	rdb *redis.Client
}

// NewDenylist creates a Redis-backed denylist.
func NewDenylist(rdb *redis.Client) *Denylist {
	return &Denylist{rdb: rdb}
}

// Revoke marks sessionID as revoked until expiresAt.
func (d *Denylist) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, denylistPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Revoked reports whether sessionID was revoked.
func (d *Denylist) Revoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, denylistPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return n > 0, nil
}
