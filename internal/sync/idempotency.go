package sync

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"drayage-backend/internal/cache"
)

// KVStore abstracts the key-value operations the idempotency store needs, so
// tests can run against an in-memory map instead of Redis.
type KVStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// redisKV delegates to the package-level Redis client.
type redisKV struct{}

func (redisKV) Exists(ctx context.Context, key string) (bool, error) {
	return cache.Exists(ctx, key)
}

func (redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return cache.Set(ctx, key, value, ttl)
}

func (redisKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return cache.SetIfAbsent(ctx, key, value, ttl)
}

func (redisKV) Del(ctx context.Context, keys ...string) error {
	return cache.Del(ctx, keys...)
}

func (redisKV) KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return cache.KeysByPrefix(ctx, prefix)
}

const idempotencyPrefix = "sync:event:"

// keySanitizer matches characters not allowed in marker keys.
var keySanitizer = regexp.MustCompile(`[^A-Za-z0-9:_-]`)

// IdempotencyStore tracks processed event markers with a TTL window. Every
// operation fails open: when Redis is down or unconfigured, events are
// processed anyway. Processing a duplicate twice is recoverable; dropping an
// event is not.
type IdempotencyStore struct {
	kv  KVStore
	ttl time.Duration
}

// NewIdempotencyStore builds a store backed by the shared Redis client.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{kv: redisKV{}, ttl: ttl}
}

// NewIdempotencyStoreWithKV builds a store over an explicit KV backend.
func NewIdempotencyStoreWithKV(kv KVStore, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{kv: kv, ttl: ttl}
}

// GenerateKey derives the dedup key for an event: eventType, reference and
// timestamp joined with colons, each part sanitized to [A-Za-z0-9:_-]. An
// empty reference becomes "unknown"; an empty timestamp stays empty.
func GenerateKey(eventType, reference, timestamp string) string {
	if reference == "" {
		reference = "unknown"
	}
	parts := []string{eventType, reference, timestamp}
	for i, p := range parts {
		parts[i] = keySanitizer.ReplaceAllString(p, "_")
	}
	return strings.Join(parts, ":")
}

// IsDuplicate reports whether the event was already processed within the TTL
// window. Store failures report false.
func (s *IdempotencyStore) IsDuplicate(ctx context.Context, key string) bool {
	exists, err := s.kv.Exists(ctx, idempotencyPrefix+key)
	if err != nil {
		if err != cache.ErrNotConfigured {
			log.Printf("[Idempotency] lookup failed for %s, failing open: %v", key, err)
		}
		return false
	}
	return exists
}

// MarkProcessed records the event marker. Returns false when the marker could
// not be written; the caller proceeds regardless.
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, key string) bool {
	if err := s.kv.Set(ctx, idempotencyPrefix+key, "1", s.ttl); err != nil {
		if err != cache.ErrNotConfigured {
			log.Printf("[Idempotency] mark failed for %s: %v", key, err)
		}
		return false
	}
	return true
}

// MarkIfFirst atomically claims the event marker, returning true when this
// caller is the first to process the event. Store failures claim the event
// (fail open).
func (s *IdempotencyStore) MarkIfFirst(ctx context.Context, key string) bool {
	created, err := s.kv.SetIfAbsent(ctx, idempotencyPrefix+key, "1", s.ttl)
	if err != nil {
		if err != cache.ErrNotConfigured {
			log.Printf("[Idempotency] claim failed for %s, failing open: %v", key, err)
		}
		return true
	}
	return created
}

// RemoveMarker drops a claimed marker so a failed event can be retried from
// the dead-letter queue without tripping dedup.
func (s *IdempotencyStore) RemoveMarker(ctx context.Context, key string) {
	if err := s.kv.Del(ctx, idempotencyPrefix+key); err != nil && err != cache.ErrNotConfigured {
		log.Printf("[Idempotency] marker removal failed for %s: %v", key, err)
	}
}

// Count returns the number of live markers, for the monitoring surface.
func (s *IdempotencyStore) Count(ctx context.Context) int {
	keys, err := s.kv.KeysByPrefix(ctx, idempotencyPrefix)
	if err != nil {
		return 0
	}
	return len(keys)
}

type IdempotencyStats struct {
	Configured bool `json:"configured"`
	KeyCount   int  `json:"key_count"`
}

// Stats reports store health for the monitoring surface. A broken store
// reports zero markers instead of an error.
func (s *IdempotencyStore) Stats(ctx context.Context) IdempotencyStats {
	return IdempotencyStats{
		Configured: cache.IsConfigured(),
		KeyCount:   s.Count(ctx),
	}
}
