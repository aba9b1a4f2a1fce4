// Package store persists finished summaries in Redis so a post is not
// summarized twice.
package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryStore wraps a Redis client for storing and retrieving summaries.
type SummaryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryStore creates a Redis-backed summary store. A zero ttl keeps entries forever.
func NewSummaryStore(addr, password string, db int, ttl time.Duration) *SummaryStore {
	return &SummaryStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Get retrieves a stored summary by key.
// Returns the summary and true if found, or "" and false if not.
func (s *SummaryStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("summary_store: get: %w", err)
	}
	return val, true, nil
}

// Set stores a summary with the configured TTL.
func (s *SummaryStore) Set(ctx context.Context, key, summary string) error {
	if err := s.client.Set(ctx, key, summary, s.ttl).Err(); err != nil {
		return fmt.Errorf("summary_store: set: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *SummaryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *SummaryStore) Close() error {
	return s.client.Close()
}

// Key derives a deterministic key from the text and the length parameters.
func Key(text string, maxLength, minLength int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s", maxLength, minLength, text)))
	return fmt.Sprintf("summary:%x", hash[:16])
}
