package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"civictrack-be/metrics"
)

const issueLimitWindow = 24 * time.Hour

// Counter increments a windowed counter and reports the new count together
// with the time left in the window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type redisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) Counter {
	return &redisCounter{client: client}
}

func (r *redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incrementing count: %w", err)
	}

	// The window starts with the first request.
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("setting TTL: %w", err)
		}
		return count, window, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("reading TTL: %w", err)
	}
	// A key left without expiry would block the user forever.
	if ttl < 0 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("setting TTL: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

// IssueRateLimiter caps issue creation per user per day. A nil counter
// disables the limit. Must run after AuthMiddleware.
func IssueRateLimiter(counter Counter, prefix string, limit int64, log logrus.FieldLogger) gin.HandlerFunc {
	if counter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			AbortWithStatus(c, http.StatusUnauthorized, "Authentication is required.")
			return
		}

		userKey := prefix + ":" + strconv.FormatInt(actor.ID, 10)
		count, ttl, err := counter.Incr(c.Request.Context(), userKey, issueLimitWindow)
		if err != nil {
			log.WithError(err).WithField("user_id", actor.ID).Error("issue rate limiter")
			AbortWithStatus(c, http.StatusInternalServerError, internalErrorMessage)
			return
		}

		if count > limit {
			metrics.RateLimited.Inc()
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": ttl.Seconds(),
			})
			return
		}

		c.Next()
	}
}
