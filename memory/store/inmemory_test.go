package store

import (
	"context"
	"errors"
	"testing"
	"time"

	errorspkg "github.com/sweetpotato0/deepresearch/errors"
	"github.com/sweetpotato0/deepresearch/research"
)

func TestInMemoryStoreSaveAndGet(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	id, err := s.Save(ctx, &research.ResearchContext{Query: "topic", Iteration: 1})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatalf("Save must return an id")
	}

	rc, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rc.Query != "topic" || rc.Iteration != 1 {
		t.Errorf("Round trip lost data: %+v", rc)
	}
	if rc.CreatedAt.IsZero() || rc.UpdatedAt.IsZero() {
		t.Errorf("Timestamps must be set on save")
	}
}

func TestInMemoryStoreGetUnknown(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, errorspkg.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStoreFindLatestByQuery(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	id1, _ := s.Save(ctx, &research.ResearchContext{Query: "topic", Iteration: 1})
	s.Save(ctx, &research.ResearchContext{Query: "other", Iteration: 1})

	// A later update makes the first context the most recent.
	time.Sleep(time.Millisecond)
	ok, err := s.Update(ctx, id1, &research.ResearchContext{Query: "topic", Iteration: 2})
	if err != nil || !ok {
		t.Fatalf("Update failed: ok=%v err=%v", ok, err)
	}

	rc, err := s.FindLatestByQuery(ctx, "topic")
	if err != nil {
		t.Fatalf("FindLatestByQuery failed: %v", err)
	}
	if rc == nil || rc.Iteration != 2 {
		t.Errorf("Expected the updated context, got %+v", rc)
	}

	missing, err := s.FindLatestByQuery(ctx, "unseen")
	if err != nil {
		t.Fatalf("FindLatestByQuery failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unseen query, got %+v", missing)
	}
}

func TestInMemoryStoreUpdateUnknown(t *testing.T) {
	s := NewInMemoryStore()

	ok, err := s.Update(context.Background(), "nope", &research.ResearchContext{Query: "q"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if ok {
		t.Errorf("Update of unknown id must report false")
	}
}

func TestInMemoryStoreUpdatePreservesCreatedAt(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	id, _ := s.Save(ctx, &research.ResearchContext{Query: "topic"})
	original, _ := s.Get(ctx, id)

	time.Sleep(time.Millisecond)
	s.Update(ctx, id, &research.ResearchContext{Query: "topic", Iteration: 3})

	updated, _ := s.Get(ctx, id)
	if !updated.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("Update must preserve CreatedAt")
	}
	if !updated.UpdatedAt.After(original.UpdatedAt) {
		t.Errorf("Update must advance UpdatedAt")
	}
}

func TestInMemoryStoreCopiesOnWrite(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	rc := &research.ResearchContext{Query: "topic", Iteration: 1}
	id, _ := s.Save(ctx, rc)
	rc.Iteration = 99

	stored, _ := s.Get(ctx, id)
	if stored.Iteration != 1 {
		t.Errorf("Caller mutation must not leak into the store, got iteration %d", stored.Iteration)
	}
}
