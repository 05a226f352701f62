// Package model adapts the Genkit generate API to the orchestrator's
// needs: full-history calls, streamed text deltas, and tool requests
// returned to the caller instead of being executed by the framework.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/thread"
)

// ErrEmptyResponse indicates the model produced neither text nor tool calls.
var ErrEmptyResponse = errors.New("model returned empty response")

// Config contains all required parameters for the Generator.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string       // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	ToolRefs  []ai.ToolRef // registered tool references, may be empty
	Logger    log.Logger

	Temperature float32
	MaxTokens   int

	// RateLimiter throttles model calls before they are issued.
	// Nil uses the default of 10 req/s with a burst of 30.
	RateLimiter *rate.Limiter
}

// Generator issues model calls through Genkit.
//
// Tool execution is deliberately NOT delegated to Genkit: generation
// runs with tool requests returned to the caller, so the orchestrator
// owns the model/tool loop, event ordering, and history writes.
type Generator struct {
	g         *genkit.Genkit
	modelName string
	toolRefs  []ai.ToolRef
	genConfig *genai.GenerateContentConfig
	limiter   *rate.Limiter
	logger    log.Logger
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	genConfig := &genai.GenerateContentConfig{}
	if cfg.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(cfg.MaxTokens) // #nosec G115 -- validated range
	}

	return &Generator{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		toolRefs:  cfg.ToolRefs,
		genConfig: genConfig,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Generate runs one model call over the full history.
//
// onDelta, when non-nil, receives each streamed text fragment as it
// arrives; returning an error from it aborts the call with that error.
// The returned assistant message is well-formed: it has text, tool
// calls, or both, never neither.
func (m *Generator) Generate(
	ctx context.Context,
	history []thread.Message,
	onDelta func(ctx context.Context, text string) error,
) (thread.Message, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return thread.Message{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	msgs, err := toGenkitMessages(history)
	if err != nil {
		return thread.Message{}, err
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(m.modelName),
		ai.WithMessages(msgs...),
		ai.WithConfig(m.genConfig),
		// The orchestrator executes tools itself; Genkit must hand the
		// requests back rather than resolve them.
		ai.WithReturnToolRequests(true),
	}
	if len(m.toolRefs) > 0 {
		opts = append(opts, ai.WithTools(m.toolRefs...))
	}
	if onDelta != nil {
		opts = append(opts, ai.WithStreaming(func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				return onDelta(cbCtx, text)
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return thread.Message{}, fmt.Errorf("generating response: %w", err)
	}

	assistant, err := fromModelResponse(resp)
	if err != nil {
		return thread.Message{}, err
	}

	m.logger.Debug("model call completed",
		"text_len", len(assistant.Text),
		"tool_calls", len(assistant.ToolCalls),
	)
	return assistant, nil
}
