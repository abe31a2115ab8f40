package cache

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// ErrNotConfigured is returned when Redis was never connected.
var ErrNotConfigured = errors.New("redis not configured")

// Init initializes the Redis connection
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// IsConfigured reports whether a Redis connection was established
func IsConfigured() bool {
	return client != nil
}

// Exists checks whether a key is present
func Exists(ctx context.Context, key string) (bool, error) {
	if client == nil {
		return false, ErrNotConfigured
	}
	n, err := client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Set stores a value with a TTL
func Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if client == nil {
		return ErrNotConfigured
	}
	return client.Set(ctx, key, value, ttl).Err()
}

// SetIfAbsent stores a value only when the key does not exist yet.
// Returns true when this call created the key.
func SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if client == nil {
		return false, ErrNotConfigured
	}
	return client.SetNX(ctx, key, value, ttl).Result()
}

// Del removes keys
func Del(ctx context.Context, keys ...string) error {
	if client == nil || len(keys) == 0 {
		return ErrNotConfigured
	}
	return client.Del(ctx, keys...).Err()
}

// KeysByPrefix returns all keys matching prefix*
func KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	if client == nil {
		return nil, ErrNotConfigured
	}
	return client.Keys(ctx, prefix+"*").Result()
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
