package middleware

import (
	"context"

	"github.com/sweetpotato0/deepresearch/gateway"
)

// Context represents the middleware execution context for one gateway call
type Context struct {
	// Request going to the gateway
	Request *gateway.Request

	// Response text from the gateway
	Response string

	// Error from execution
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]interface{}

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, req *gateway.Request) *Context {
	return &Context{
		Request:  req,
		Metadata: make(map[string]interface{}),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	return c.context
}

// Middleware defines the interface for middleware components.
// Middlewares intercept gateway completion calls; returning an error stops
// the chain.
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// List returns the middlewares in the chain
func (c *Chain) List() []Middleware {
	return c.middlewares
}

// Execute runs all middlewares in the chain
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

func (c *Chain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}

// wrapped decorates a gateway with a middleware chain.
type wrapped struct {
	inner gateway.Gateway
	chain *Chain
}

// Wrap returns a Gateway whose completions pass through the given chain.
func Wrap(g gateway.Gateway, middlewares ...Middleware) gateway.Gateway {
	return &wrapped{inner: g, chain: NewChain(middlewares...)}
}

// Complete implements gateway.Gateway
func (w *wrapped) Complete(ctx context.Context, req *gateway.Request) (string, error) {
	mwCtx := NewContext(ctx, req)
	err := w.chain.Execute(mwCtx, func(mwCtx *Context) error {
		out, err := w.inner.Complete(mwCtx.Context(), mwCtx.Request)
		if err != nil {
			mwCtx.Error = err
			return err
		}
		mwCtx.Response = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return mwCtx.Response, nil
}
