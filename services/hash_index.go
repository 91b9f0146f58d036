package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const hashIndexPrefix = "hashidx:"

// HashIndex is a best-effort redis cache from access hash to ticket id. It
// only spares the resolver a full scan: every hit is re-verified by
// recomputation, so the cache is never a trust boundary and a lost or stale
// entry costs a scan, not correctness.
type HashIndex struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewHashIndex(redisClient *redis.Client, ttl time.Duration) *HashIndex {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &HashIndex{Redis: redisClient, TTL: ttl}
}

func (i *HashIndex) Lookup(ctx context.Context, hash string) (string, bool) {
	ticketID, err := i.Redis.Get(ctx, hashIndexPrefix+hash).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("hash index lookup failed", "error", err)
		return "", false
	}
	return ticketID, true
}

func (i *HashIndex) Store(ctx context.Context, hash, ticketID string) {
	if err := i.Redis.Set(ctx, hashIndexPrefix+hash, ticketID, i.TTL).Err(); err != nil {
		slog.Warn("hash index store failed", "error", err)
	}
}

func (i *HashIndex) Invalidate(ctx context.Context, hash string) {
	if err := i.Redis.Del(ctx, hashIndexPrefix+hash).Err(); err != nil {
		slog.Warn("hash index invalidate failed", "error", err)
	}
}
