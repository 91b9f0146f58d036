package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowUnderLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db, 30)

	mock.ExpectIncr("ratelimit:10.0.0.1").SetVal(1)
	mock.ExpectExpire("ratelimit:10.0.0.1", time.Minute).SetVal(true)

	assert.True(t, rl.Allow(context.Background(), "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db, 30)

	mock.ExpectIncr("ratelimit:10.0.0.1").SetVal(31)

	assert.False(t, rl.Allow(context.Background(), "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_AllowsWhenRedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db, 30)

	mock.ExpectIncr("ratelimit:10.0.0.1").SetErr(errors.New("connection refused"))

	assert.True(t, rl.Allow(context.Background(), "10.0.0.1"))
}

func TestRateLimiter_NilRedis(t *testing.T) {
	rl := NewRateLimiter(nil, 30)
	assert.True(t, rl.Allow(context.Background(), "10.0.0.1"))
}

func TestIsSuspiciousUserAgent(t *testing.T) {
	assert.True(t, isSuspiciousUserAgent("Googlebot/2.1"))
	assert.True(t, isSuspiciousUserAgent("my-scraper/1.0"))
	assert.False(t, isSuspiciousUserAgent("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.False(t, isSuspiciousUserAgent(""))
}
