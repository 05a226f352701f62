package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/parleyhq/parley/internal/log"
)

// DefaultTimeout bounds a single tool invocation when the registry is
// created with a zero timeout.
const DefaultTimeout = 12 * time.Second

// Registry holds the closed set of tools available to the model.
// The mapping is validated at construction and immutable afterward, so
// lookups need no locking.
type Registry struct {
	tools   map[string]*ExecutableTool
	order   []string // registration order, for stable listings
	timeout time.Duration
	logger  log.Logger
}

// NewRegistry creates a registry from the given tools.
// Duplicate or empty tool names are configuration bugs and fail fast.
func NewRegistry(logger log.Logger, timeout time.Duration, tools ...*ExecutableTool) (*Registry, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Registry{
		tools:   make(map[string]*ExecutableTool, len(tools)),
		timeout: timeout,
		logger:  logger,
	}
	for _, t := range tools {
		if t == nil {
			return nil, errors.New("nil tool")
		}
		if t.name == "" {
			return nil, errors.New("tool with empty name")
		}
		if _, exists := r.tools[t.name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", t.name)
		}
		r.tools[t.name] = t
		r.order = append(r.order, t.name)
	}

	return r, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Refs registers every tool with Genkit and returns the references to
// pass via ai.WithTools, so the model sees the argument schemas.
func (r *Registry) Refs(g *genkit.Genkit) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(r.order))
	for _, name := range r.order {
		refs = append(refs, r.tools[name].define(g))
	}
	return refs
}

// Invoke runs the named tool with the given raw JSON arguments.
//
// Invoke never returns a Go error and never panics: unknown names,
// timeouts, and tool panics all fold into an error Result that is
// recorded in history for the model to react to.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (res Result) {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return Failure(ErrCodeUnknownTool, "tool %q is not available", name)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", p)
			res = Failure(ErrCodeInternal, "tool %q failed unexpectedly", name)
		}
	}()

	start := time.Now()
	res = t.handler(callCtx, args)

	// Report deadline failures uniformly regardless of how the tool's
	// HTTP client surfaced them.
	if res.Status == StatusError && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		res = Failure(ErrCodeTimeout, "tool %q timed out after %s", name, r.timeout)
	}

	r.logger.Debug("tool invoked",
		"tool", name,
		"status", res.Status,
		"duration", time.Since(start),
	)
	return res
}
