// Package suppression answers "may we still email this address" for the
// sending path, caching global suppression lookups in Redis.
package suppression

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/feedback-gateway/internal/pkg/logger"
)

const keyPrefix = "suppression:"

// Store is the durable source of truth behind the cache.
type Store interface {
	GlobalExists(ctx context.Context, email string) (bool, error)
}

// Checker fronts the global_complaint_report table with a Redis
// positive/negative cache. A nil Redis client degrades to straight DB
// lookups.
type Checker struct {
	store Store
	redis *redis.Client
	ttl   time.Duration
}

// NewChecker creates a checker. ttl <= 0 defaults to 15 minutes.
func NewChecker(store Store, rdb *redis.Client, ttl time.Duration) *Checker {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Checker{store: store, redis: rdb, ttl: ttl}
}

// IsSuppressed reports whether the address has any global suppression row.
// Cache failures fall through to the database; only a database failure is an
// error.
func (c *Checker) IsSuppressed(ctx context.Context, email string) (bool, error) {
	email = normalize(email)

	if c.redis != nil {
		val, err := c.redis.Get(ctx, keyPrefix+email).Result()
		switch {
		case err == nil:
			return val == "1", nil
		case err != redis.Nil:
			logger.Warn("suppression cache read failed", "error", err.Error())
		}
	}

	suppressed, err := c.store.GlobalExists(ctx, email)
	if err != nil {
		return false, err
	}

	if c.redis != nil {
		val := "0"
		if suppressed {
			val = "1"
		}
		if err := c.redis.Set(ctx, keyPrefix+email, val, c.ttl).Err(); err != nil {
			logger.Warn("suppression cache write failed", "error", err.Error())
		}
	}
	return suppressed, nil
}

// SuppressionRecorded primes the cache when a new global row commits, so the
// sending path sees the suppression without waiting out a stale negative
// entry.
func (c *Checker) SuppressionRecorded(ctx context.Context, email, _ string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, keyPrefix+normalize(email), "1", c.ttl).Err(); err != nil {
		logger.Warn("suppression cache prime failed", "error", err.Error())
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
