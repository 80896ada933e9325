package inmemory

import (
	"context"
	"testing"

	"github.com/sweetpotato0/deepresearch/vector"
)

func TestAddAndGetEmbedding(t *testing.T) {
	store := NewInMemoryVectorStore()
	ctx := context.Background()

	emb := &vector.Embedding{ID: "e1", Vector: []float32{1, 0, 0}, Text: "one"}
	if err := store.AddEmbedding(ctx, emb); err != nil {
		t.Fatalf("Failed to add embedding: %v", err)
	}

	got, err := store.GetEmbedding(ctx, "e1")
	if err != nil {
		t.Fatalf("Failed to get embedding: %v", err)
	}
	if got.Text != "one" {
		t.Errorf("Expected text one, got %s", got.Text)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}
}

func TestAddEmbeddingValidation(t *testing.T) {
	store := NewInMemoryVectorStore()
	ctx := context.Background()

	if err := store.AddEmbedding(ctx, nil); err == nil {
		t.Errorf("Expected error for nil embedding")
	}
	if err := store.AddEmbedding(ctx, &vector.Embedding{Vector: []float32{1}}); err == nil {
		t.Errorf("Expected error for empty ID")
	}
	if err := store.AddEmbedding(ctx, &vector.Embedding{ID: "x"}); err == nil {
		t.Errorf("Expected error for empty vector")
	}
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	store := NewInMemoryVectorStore()
	ctx := context.Background()

	store.AddEmbedding(ctx, &vector.Embedding{ID: "close", Vector: []float32{1, 0.1, 0}})
	store.AddEmbedding(ctx, &vector.Embedding{ID: "far", Vector: []float32{0, 1, 0}})

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != "close" {
		t.Errorf("Expected closest embedding first, got %s", results[0].ID)
	}
}

func TestDeleteEmbedding(t *testing.T) {
	store := NewInMemoryVectorStore()
	ctx := context.Background()

	store.AddEmbedding(ctx, &vector.Embedding{ID: "e1", Vector: []float32{1}})
	if err := store.DeleteEmbedding(ctx, "e1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.DeleteEmbedding(ctx, "e1"); err == nil {
		t.Errorf("Expected error deleting missing embedding")
	}
}
