// Package search defines the web-search boundary consumed by the task
// runner. Engines under contrib/search implement Searcher and register
// themselves in a Registry keyed by name so configuration can pick one.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	errorspkg "github.com/sweetpotato0/deepresearch/errors"
)

// Result is one hit returned by a search engine.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher executes one query against a search engine, returning results in
// provider order. maxResults is advisory; engines may return fewer.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Registry maps engine names to searchers.
// All operations are thread-safe using RWMutex protection
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Searcher
}

// NewRegistry creates an empty searcher registry
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Searcher),
	}
}

// Register adds a searcher under the given name
func (r *Registry) Register(name string, s Searcher) error {
	if name == "" {
		return fmt.Errorf("searcher name cannot be empty")
	}
	if s == nil {
		return fmt.Errorf("searcher cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("searcher %s already registered", name)
	}
	r.engines[name] = s
	return nil
}

// Get retrieves a searcher by name
func (r *Registry) Get(name string) (Searcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("searcher %s: %w", name, errorspkg.ErrNotFound)
	}
	return s, nil
}

// List returns all registered engine names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
