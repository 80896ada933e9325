package store

import (
	"context"
	"testing"

	"github.com/sweetpotato0/deepresearch/contrib/vector/inmemory"
	"github.com/sweetpotato0/deepresearch/research"
)

// wordEmbedder produces a tiny bag-of-letters vector, enough to make
// similar strings land near each other.
type wordEmbedder struct{}

func (wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (e wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := e.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (wordEmbedder) Dimension() int { return 26 }

func TestVectorMemoryStoreFindsSimilarQuery(t *testing.T) {
	s := NewVectorMemoryStore(inmemory.NewInMemoryVectorStore(), wordEmbedder{})
	ctx := context.Background()

	_, err := s.Save(ctx, &research.ResearchContext{Query: "solar energy storage", Iteration: 2})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rc, err := s.FindLatestByQuery(ctx, "solar energy storage systems")
	if err != nil {
		t.Fatalf("FindLatestByQuery failed: %v", err)
	}
	if rc == nil || rc.Iteration != 2 {
		t.Errorf("Expected semantic match to stored context, got %+v", rc)
	}
}

func TestVectorMemoryStoreEmptyIndex(t *testing.T) {
	s := NewVectorMemoryStore(inmemory.NewInMemoryVectorStore(), wordEmbedder{})

	rc, err := s.FindLatestByQuery(context.Background(), "anything")
	if err != nil {
		t.Fatalf("FindLatestByQuery failed: %v", err)
	}
	if rc != nil {
		t.Errorf("Empty index must yield nil, got %+v", rc)
	}
}

func TestVectorMemoryStoreUpdateRoundTrip(t *testing.T) {
	s := NewVectorMemoryStore(inmemory.NewInMemoryVectorStore(), wordEmbedder{})
	ctx := context.Background()

	id, _ := s.Save(ctx, &research.ResearchContext{Query: "topic"})
	ok, err := s.Update(ctx, id, &research.ResearchContext{Query: "topic", Iteration: 3})
	if err != nil || !ok {
		t.Fatalf("Update failed: ok=%v err=%v", ok, err)
	}

	rc, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rc.Iteration != 3 {
		t.Errorf("Update lost data, iteration %d", rc.Iteration)
	}
}
