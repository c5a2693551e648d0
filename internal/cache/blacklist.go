package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// Blacklist is a Redis-backed denylist of raw token strings. Entries carry a
// TTL matching the remaining lifetime of the token, so the set never grows
// past the set of tokens that could still verify.
//
// The cache is advisory: the refresh token ledger in PostgreSQL remains the
// source of truth, and a missed blacklist entry is still caught there.
type Blacklist struct {
	client *redis.Client
}

// NewBlacklist creates a Blacklist over an existing Redis client.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// Add denylists a raw token for the given duration. Tokens already past
// expiry need no entry; callers pass ttl <= 0 to skip the write.
func (b *Blacklist) Add(ctx context.Context, rawToken string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistPrefix+rawToken, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the raw token has been denylisted.
func (b *Blacklist) IsBlacklisted(ctx context.Context, rawToken string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistPrefix+rawToken).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}
