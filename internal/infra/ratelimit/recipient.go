package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MrX1068/stunxtV2-sub005/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notifications:ratelimit:"

var _ notification.RecipientRateLimiter = (*RedisRecipientLimiter)(nil)

// RedisRecipientLimiter caps how many notifications a single recipient can
// receive per hour, across all channels and all API instances. It keeps a
// sliding window in a Redis sorted set: one member per accepted
// notification, scored by acceptance time.
type RedisRecipientLimiter struct {
	client     *redis.Client
	maxPerHour int
	window     time.Duration
}

// NewRedisRecipientLimiter wraps a shared Redis client.
func NewRedisRecipientLimiter(client *redis.Client, maxPerHour int) *RedisRecipientLimiter {
	return &RedisRecipientLimiter{
		client:     client,
		maxPerHour: maxPerHour,
		window:     time.Hour,
	}
}

// Allow reports whether one more notification may go to the recipient. The
// entry is added optimistically in the same pipeline that trims and counts
// the window, so two concurrent callers cannot both slip under the limit;
// a denied caller removes its own entry again.
func (r *RedisRecipientLimiter) Allow(ctx context.Context, recipient string) (bool, error) {
	key := keyPrefix + recipient
	now := time.Now()
	member := uuid.NewString()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Add(-r.window).UnixNano(), 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, r.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("checking recipient rate limit: %w", err)
	}

	if countCmd.Val() > int64(r.maxPerHour) {
		if err := r.client.ZRem(ctx, key, member).Err(); err != nil {
			return false, fmt.Errorf("releasing rate limit entry: %w", err)
		}
		return false, nil
	}

	return true, nil
}
