package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/deepresearch/gateway"
)

type recordingMiddleware struct {
	name  string
	order *[]string
}

func (m *recordingMiddleware) Name() string { return m.name }

func (m *recordingMiddleware) Execute(ctx *Context, next Handler) error {
	*m.order = append(*m.order, m.name)
	return next(ctx)
}

func TestChainOrder(t *testing.T) {
	var order []string
	chain := NewChain(
		&recordingMiddleware{name: "first", order: &order},
		&recordingMiddleware{name: "second", order: &order},
	)

	called := false
	err := chain.Execute(NewContext(context.Background(), &gateway.Request{}), func(ctx *Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !called {
		t.Errorf("Final handler not called")
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Middlewares ran out of order: %v", order)
	}
}

func TestWrapPassesResponse(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return "ok", nil
	})

	wrapped := Wrap(gw, NewRequestLogger(nil))
	out, err := wrapped.Complete(context.Background(), &gateway.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("Expected ok, got %q", out)
	}
}

func TestRateLimiter(t *testing.T) {
	gw := gateway.Func(func(ctx context.Context, req *gateway.Request) (string, error) {
		return "ok", nil
	})
	limiter := NewRateLimiter(2)
	wrapped := Wrap(gw, limiter)

	for i := 0; i < 2; i++ {
		if _, err := wrapped.Complete(context.Background(), &gateway.Request{}); err != nil {
			t.Fatalf("Call %d failed: %v", i, err)
		}
	}

	_, err := wrapped.Complete(context.Background(), &gateway.Request{})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Expected rate limit error, got %v", err)
	}

	limiter.Reset()
	if limiter.Counter() != 0 {
		t.Errorf("Expected counter reset to 0, got %d", limiter.Counter())
	}
}
