// Package gateway defines the boundary to the language model backend. The
// research pipeline only ever needs single-shot completions: a system role,
// a prompt, and optional context formatted into the prompt. Providers under
// contrib/provider implement this interface against real model APIs.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Request is one completion request. Context entries, when present, are
// rendered into a preamble ahead of the prompt so every provider sees the
// same final text.
type Request struct {
	// SystemRole is the role instruction for the model.
	SystemRole string

	// Prompt is the user-facing request text.
	Prompt string

	// Context carries optional key/value background for the call.
	Context map[string]any
}

// Gateway is the opaque completion capability consumed by every research
// role. Replies are plain text; JSON-shaped output is a convention between
// each call site and the model, never enforced here, so call sites must
// tolerate malformed replies.
type Gateway interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

// Func adapts a plain function to the Gateway interface; useful in tests.
type Func func(ctx context.Context, req *Request) (string, error)

// Complete implements Gateway.
func (f Func) Complete(ctx context.Context, req *Request) (string, error) {
	return f(ctx, req)
}

// RenderPrompt flattens a request into the final prompt text, prefixing the
// formatted context block when one is present. Keys are sorted so the output
// is deterministic.
func RenderPrompt(req *Request) string {
	if req == nil {
		return ""
	}
	if len(req.Context) == 0 {
		return req.Prompt
	}

	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Context:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, req.Context[k])
	}
	b.WriteString("\n")
	b.WriteString(req.Prompt)
	return b.String()
}
