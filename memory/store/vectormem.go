package store

import (
	"context"
	"fmt"

	errorspkg "github.com/sweetpotato0/deepresearch/errors"
	"github.com/sweetpotato0/deepresearch/research"
	"github.com/sweetpotato0/deepresearch/vector"
)

// vectorSearchTopK bounds how many candidates a query lookup considers.
const vectorSearchTopK = 5

// VectorMemoryStore layers semantic query lookup over an in-memory context
// store. Contexts are keyed by id as usual; additionally each context's
// query is embedded, so FindLatestByQuery matches paraphrased queries
// instead of requiring the exact original string.
type VectorMemoryStore struct {
	base     *InMemoryStore
	vectors  vector.VectorStore
	embedder vector.Embedder
}

// NewVectorMemoryStore creates a context store with embedding-based query
// lookup.
func NewVectorMemoryStore(vectors vector.VectorStore, embedder vector.Embedder) *VectorMemoryStore {
	return &VectorMemoryStore{
		base:     NewInMemoryStore(),
		vectors:  vectors,
		embedder: embedder,
	}
}

// Save stores the context and indexes its query embedding under the
// context id.
func (s *VectorMemoryStore) Save(ctx context.Context, rc *research.ResearchContext) (string, error) {
	id, err := s.base.Save(ctx, rc)
	if err != nil {
		return "", err
	}

	vec, err := s.embedder.Embed(ctx, rc.Query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}
	if err := s.vectors.AddEmbedding(ctx, &vector.Embedding{
		ID:     id,
		Vector: vec,
		Text:   rc.Query,
	}); err != nil {
		return "", fmt.Errorf("failed to index query embedding: %w", err)
	}
	return id, nil
}

// Get retrieves a context by id.
func (s *VectorMemoryStore) Get(ctx context.Context, id string) (*research.ResearchContext, error) {
	return s.base.Get(ctx, id)
}

// FindLatestByQuery embeds the query and returns the most recently updated
// context among the nearest indexed queries, or nil when nothing is indexed.
func (s *VectorMemoryStore) FindLatestByQuery(ctx context.Context, query string) (*research.ResearchContext, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.vectors.Search(ctx, vec, vectorSearchTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search query embeddings: %w", err)
	}

	var latest *research.ResearchContext
	for _, m := range matches {
		rc, err := s.base.Get(ctx, m.ID)
		if err != nil {
			// Embedding outlived its context, skip it.
			continue
		}
		if latest == nil || rc.UpdatedAt.After(latest.UpdatedAt) {
			latest = rc
		}
	}
	return latest, nil
}

// Update replaces the context stored under id and refreshes its query
// embedding when the query changed.
func (s *VectorMemoryStore) Update(ctx context.Context, id string, rc *research.ResearchContext) (bool, error) {
	if rc == nil {
		return false, fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	existing, err := s.vectors.GetEmbedding(ctx, id)
	needsReindex := err != nil || existing == nil || existing.Text != rc.Query

	ok, err := s.base.Update(ctx, id, rc)
	if err != nil || !ok {
		return ok, err
	}

	if needsReindex {
		vec, err := s.embedder.Embed(ctx, rc.Query)
		if err != nil {
			return false, fmt.Errorf("failed to embed query: %w", err)
		}
		if err := s.vectors.AddEmbedding(ctx, &vector.Embedding{
			ID:     id,
			Vector: vec,
			Text:   rc.Query,
		}); err != nil {
			return false, fmt.Errorf("failed to reindex query embedding: %w", err)
		}
	}
	return true, nil
}
