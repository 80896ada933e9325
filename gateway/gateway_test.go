package gateway

import (
	"context"
	"strings"
	"testing"
)

func TestRenderPromptWithoutContext(t *testing.T) {
	req := &Request{SystemRole: "role", Prompt: "hello"}
	if got := RenderPrompt(req); got != "hello" {
		t.Errorf("Expected bare prompt, got %q", got)
	}
}

func TestRenderPromptWithContext(t *testing.T) {
	req := &Request{
		Prompt: "question",
		Context: map[string]any{
			"iteration": 2,
			"query":     "topic",
		},
	}

	got := RenderPrompt(req)
	if !strings.HasPrefix(got, "Context:\n") {
		t.Errorf("Expected context preamble, got %q", got)
	}
	// Keys render in sorted order for determinism.
	if strings.Index(got, "iteration: 2") > strings.Index(got, "query: topic") {
		t.Errorf("Context keys not sorted: %q", got)
	}
	if !strings.HasSuffix(got, "question") {
		t.Errorf("Prompt not appended: %q", got)
	}
}

func TestFuncAdapter(t *testing.T) {
	gw := Func(func(ctx context.Context, req *Request) (string, error) {
		return "reply to " + req.Prompt, nil
	})

	out, err := gw.Complete(context.Background(), &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "reply to x" {
		t.Errorf("Unexpected reply: %q", out)
	}
}
