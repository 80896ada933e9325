package search

import (
	"context"
	"testing"
)

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return []Result{{Title: "t", Link: "https://example.com", Snippet: "s"}}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("stub", stubSearcher{}); err != nil {
		t.Fatalf("Failed to register searcher: %v", err)
	}

	s, err := r.Get("stub")
	if err != nil {
		t.Fatalf("Failed to get searcher: %v", err)
	}
	if s == nil {
		t.Fatalf("Expected searcher, got nil")
	}

	if err := r.Register("stub", stubSearcher{}); err == nil {
		t.Errorf("Expected error when registering duplicate searcher")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); err == nil {
		t.Errorf("Expected error for unknown searcher")
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("", stubSearcher{}); err == nil {
		t.Errorf("Expected error for empty name")
	}
	if err := r.Register("x", nil); err == nil {
		t.Errorf("Expected error for nil searcher")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register("b", stubSearcher{})
	r.Register("a", stubSearcher{})

	names := r.List()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Expected sorted names [a b], got %v", names)
	}
}
