package utils

import (
	"bytes"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultReplayTTL = 24 * time.Hour
	replayKeyPrefix  = "idem:food-entry:"
)

// PendingMarker is stored while the first request for a key is in flight.
var PendingMarker = []byte("__pending__")

// ReplayStore remembers the response of a completed create so a retried
// request with the same idempotency key can be answered without a second
// insert. Implementations are best-effort: backend failures read as a miss.
type ReplayStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Reserve marks key as in flight. It reports false when key already exists.
	Reserve(ctx context.Context, key string, ttl time.Duration) bool
	Set(ctx context.Context, key string, b []byte, ttl time.Duration)
	Release(ctx context.Context, key string)
}

// IsPending reports whether b is the in-flight marker.
func IsPending(b []byte) bool {
	return bytes.Equal(b, PendingMarker)
}

// RedisReplayStore keeps replay entries in Redis.
type RedisReplayStore struct {
	rc  *redis.Client
	log *zap.Logger
}

// NewRedisReplayStore wraps rc. A nil logger disables logging.
func NewRedisReplayStore(rc *redis.Client, log *zap.Logger) *RedisReplayStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisReplayStore{rc: rc, log: log}
}

// Get returns cached bytes for a key from Redis.
func (s *RedisReplayStore) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := s.rc.Get(ctx, replayKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("replay get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

func (s *RedisReplayStore) Reserve(ctx context.Context, key string, ttl time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ok, err := s.rc.SetNX(ctx, replayKeyPrefix+key, PendingMarker, ttlOrDefault(ttl)).Result()
	if err != nil {
		// fail open: proceed without replay protection
		s.log.Warn("replay reserve failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// Set stores bytes with ttl, or the default TTL when ttl <= 0.
func (s *RedisReplayStore) Set(ctx context.Context, key string, b []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.rc.Set(ctx, replayKeyPrefix+key, b, ttlOrDefault(ttl)).Err(); err != nil {
		s.log.Warn("replay set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *RedisReplayStore) Release(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.rc.Del(ctx, replayKeyPrefix+key).Err(); err != nil {
		s.log.Warn("replay release failed", zap.String("key", key), zap.Error(err))
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultReplayTTL
	}
	return ttl
}
