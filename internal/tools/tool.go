package tools

import (
	"context"
	"encoding/json"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ExecutableTool pairs tool metadata with its execution logic.
// Input types are erased to json.RawMessage so the registry can store
// heterogeneous tools; NewTool restores compile-time type safety.
type ExecutableTool struct {
	name        string
	description string

	// handler decodes raw arguments and runs the tool.
	handler func(ctx context.Context, raw json.RawMessage) Result

	// define registers the tool with Genkit so the model sees its
	// argument schema. Execution still goes through the registry, but
	// the Genkit handler is wired to the same function in case a
	// provider-side call slips through.
	define func(g *genkit.Genkit) ai.Tool
}

// Name returns the tool's unique identifier.
func (t *ExecutableTool) Name() string {
	return t.name
}

// Description returns the tool's functionality description.
// The model uses this to decide when to call the tool.
func (t *ExecutableTool) Description() string {
	return t.description
}

// NewTool creates a tool with type-safe argument handling.
//
// The In type parameter defines the argument schema; struct fields
// should carry jsonschema_description tags so the model knows what to
// supply. Malformed arguments produce an invalid_arguments Result
// rather than an error: argument problems are the model's to fix.
//
// Example:
//
//	NewTool("get_joke", "Fetch a random joke.",
//	    func(ctx context.Context, in JokeInput) Result { ... })
func NewTool[In any](name, description string, handler func(context.Context, In) Result) *ExecutableTool {
	run := func(ctx context.Context, raw json.RawMessage) Result {
		var in In
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &in); err != nil {
				return Failure(ErrCodeInvalidArguments, "decoding arguments for %s: %v", name, err)
			}
		}
		return handler(ctx, in)
	}

	return &ExecutableTool{
		name:        name,
		description: description,
		handler:     run,
		define: func(g *genkit.Genkit) ai.Tool {
			return genkit.DefineTool(g, name, description,
				func(tc *ai.ToolContext, in In) (Result, error) {
					return handler(tc.Context, in), nil
				})
		},
	}
}
