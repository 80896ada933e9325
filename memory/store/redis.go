package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errorspkg "github.com/sweetpotato0/deepresearch/errors"
	"github.com/sweetpotato0/deepresearch/research"
)

// RedisStore persists research contexts in Redis. Each context lives under
// its own key; a set tracks all context keys for query scans.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // 0 means no expiration
}

// NewRedisStore creates a Redis-backed context store.
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "deepresearch:context:",
			TTL:    0,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) setKey() string {
	return s.prefix + "set"
}

// Save stores a new context and returns its id.
func (s *RedisStore) Save(ctx context.Context, rc *research.ResearchContext) (string, error) {
	if rc == nil {
		return "", fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	id := newContextID()
	now := time.Now().UTC()
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = now
	}
	rc.UpdatedAt = now

	data, err := json.Marshal(rc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal context: %w", err)
	}

	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store context in Redis: %w", err)
	}
	if err := s.client.SAdd(ctx, s.setKey(), s.key(id)).Err(); err != nil {
		return "", fmt.Errorf("failed to track context key: %w", err)
	}
	return id, nil
}

// Get retrieves a context by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*research.ResearchContext, error) {
	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("context %s: %w", id, errorspkg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get context: %w", err)
	}

	var rc research.ResearchContext
	if err := json.Unmarshal([]byte(data), &rc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &rc, nil
}

// FindLatestByQuery scans the tracked keys and returns the most recently
// updated context for the query, or nil when none matches.
func (s *RedisStore) FindLatestByQuery(ctx context.Context, query string) (*research.ResearchContext, error) {
	keys, err := s.client.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list context keys: %w", err)
	}

	var latest *research.ResearchContext
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				// Key expired, drop it from the tracking set.
				s.client.SRem(ctx, s.setKey(), key)
				continue
			}
			return nil, fmt.Errorf("failed to get context: %w", err)
		}

		var rc research.ResearchContext
		if err := json.Unmarshal([]byte(data), &rc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
		if rc.Query != query {
			continue
		}
		if latest == nil || rc.UpdatedAt.After(latest.UpdatedAt) {
			latest = &rc
		}
	}
	return latest, nil
}

// Update replaces the context stored under id. Returns false when the id is
// unknown.
func (s *RedisStore) Update(ctx context.Context, id string, rc *research.ResearchContext) (bool, error) {
	if rc == nil {
		return false, fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errorspkg.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	rc.CreatedAt = existing.CreatedAt
	rc.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rc)
	if err != nil {
		return false, fmt.Errorf("failed to marshal context: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return false, fmt.Errorf("failed to update context in Redis: %w", err)
	}
	return true, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
