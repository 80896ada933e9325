// Package store provides ContextStore implementations: an in-memory store
// for tests and single-process runs, plus Redis, MongoDB, and PostgreSQL
// backed stores for persistence across processes.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	errorspkg "github.com/sweetpotato0/deepresearch/errors"
	"github.com/sweetpotato0/deepresearch/research"
)

// newContextID generates a unique id for a research context.
func newContextID() string {
	return fmt.Sprintf("research:%d", time.Now().UnixNano())
}

// InMemoryStore keeps research contexts in a map. Contexts are copied on the
// way in and out so callers cannot mutate stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*research.ResearchContext
}

// NewInMemoryStore creates an empty in-memory context store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		contexts: make(map[string]*research.ResearchContext),
	}
}

// Save stores a new context and returns its generated id.
func (s *InMemoryStore) Save(ctx context.Context, rc *research.ResearchContext) (string, error) {
	if rc == nil {
		return "", fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := newContextID()
	now := time.Now().UTC()
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = now
	}
	rc.UpdatedAt = now

	stored := *rc
	s.contexts[id] = &stored
	return id, nil
}

// Get retrieves a context by id.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*research.ResearchContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.contexts[id]
	if !ok {
		return nil, fmt.Errorf("context %s: %w", id, errorspkg.ErrNotFound)
	}
	out := *rc
	return &out, nil
}

// FindLatestByQuery returns the most recently updated context stored for the
// exact query, or nil when none exists.
func (s *InMemoryStore) FindLatestByQuery(ctx context.Context, query string) (*research.ResearchContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *research.ResearchContext
	for _, rc := range s.contexts {
		if rc.Query != query {
			continue
		}
		if latest == nil || rc.UpdatedAt.After(latest.UpdatedAt) {
			latest = rc
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

// Update replaces the context stored under id. Returns false when the id is
// unknown.
func (s *InMemoryStore) Update(ctx context.Context, id string, rc *research.ResearchContext) (bool, error) {
	if rc == nil {
		return false, fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contexts[id]
	if !ok {
		return false, nil
	}

	rc.CreatedAt = existing.CreatedAt
	rc.UpdatedAt = time.Now().UTC()
	stored := *rc
	s.contexts[id] = &stored
	return true, nil
}

// Count returns the number of stored contexts.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts), nil
}

// Clear removes all stored contexts.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = make(map[string]*research.ResearchContext)
	return nil
}
