package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreadCache keeps inbox unread counts in Redis. A nil cache is valid and
// caches nothing.
type unreadCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func unreadKey(userID string) string {
	return "conversation:unread:" + userID
}

func (c *unreadCache) get(ctx context.Context, userID string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	n, err := c.client.Get(ctx, unreadKey(userID)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("unread cache read failed", "user_id", userID, "error", err)
		}
		return 0, false
	}
	return n, true
}

func (c *unreadCache) set(ctx context.Context, userID string, n int64) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, unreadKey(userID), n, c.ttl).Err(); err != nil {
		c.logger.Warn("unread cache write failed", "user_id", userID, "error", err)
	}
}

// invalidate drops the cached counts of userIDs.
func (c *unreadCache) invalidate(ctx context.Context, userIDs ...string) {
	if c == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("unread cache invalidation failed", "users", len(userIDs), "error", err)
	}
}
