package security

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the public hash endpoints. Every lookup there is a
// linear scan, so an unthrottled client probing random hashes is a cheap way
// to burn the database.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int64
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &RateLimiter{redis: redisClient, perMinute: int64(perMinute)}
}

// Allow reports whether the client identified by key may proceed. Counts are
// kept in redis with a one minute window. Redis failures allow the request
// through: availability over throttling.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	if r.redis == nil {
		return true
	}

	redisKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		slog.Warn("rate limiter unavailable", "error", err)
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, redisKey, time.Minute)
	}
	return count <= r.perMinute
}

// Limit wraps a route handler with per-IP throttling and a bot user-agent
// check.
func (r *RateLimiter) Limit(next func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.UserAgent()) {
			return apis.NewForbiddenError("Access denied", nil)
		}

		if !r.Allow(e.Request.Context(), e.RealIP()) {
			return apis.NewTooManyRequestsError("Too many requests. Please try again later.", nil)
		}

		return next(e)
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
