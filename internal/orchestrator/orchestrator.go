// Package orchestrator drives one conversational turn: it feeds the
// thread history to the model, executes requested tools, loops until
// the model produces a final text answer, and persists the turn's
// messages as a single checkpoint.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/thread"
	"github.com/parleyhq/parley/internal/tools"
)

// Fatal turn errors. Tool failures are not here on purpose: they fold
// into tool results and the turn continues.
var (
	// ErrMaxRounds indicates the model kept requesting tools past the
	// round cap.
	ErrMaxRounds = errors.New("exceeded maximum tool rounds")

	// ErrModel wraps a failed or malformed model response.
	ErrModel = errors.New("model request failed")

	// ErrStorage wraps a failed checkpoint read or write.
	ErrStorage = errors.New("checkpoint storage failed")

	// ErrEmptyMessage indicates the turn was started without user text.
	ErrEmptyMessage = errors.New("empty user message")
)

// errStreamAborted signals that the event consumer stopped listening.
// Distinct from fatal errors: there is nobody left to report to.
var errStreamAborted = errors.New("event consumer gone")

// DefaultMaxRounds caps model/tool rounds per turn when Config leaves
// MaxRounds zero.
const DefaultMaxRounds = 8

// Generator is the model dependency, satisfied by model.Generator.
type Generator interface {
	Generate(ctx context.Context, history []thread.Message, onDelta func(ctx context.Context, text string) error) (thread.Message, error)
}

// ToolInvoker is the tool execution dependency, satisfied by
// tools.Registry.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) tools.Result
}

// Config contains all required parameters for the Orchestrator.
type Config struct {
	Store     thread.Store
	Model     Generator
	Tools     ToolInvoker
	MaxRounds int
	Logger    log.Logger
}

// Orchestrator runs turns. It is stateless across turns and safe for
// concurrent use; per-thread write ordering is the Store's concern.
type Orchestrator struct {
	store     thread.Store
	model     Generator
	tools     ToolInvoker
	maxRounds int
	logger    log.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tool invoker is required")
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{
		store:     cfg.Store,
		model:     cfg.Model,
		tools:     cfg.Tools,
		maxRounds: maxRounds,
		logger:    logger,
	}, nil
}

// RunTurn executes one turn and yields its events lazily.
//
// An empty threadID starts a new thread: a fresh ID is generated and
// announced in a leading checkpoint event. A threadID the store does
// not know resumes as an empty conversation.
//
// The sequence always terminates with EventEnd. Fatal errors produce
// EventError directly before it and leave the stored thread untouched;
// only a fully completed turn is appended, atomically. If the consumer
// stops iterating (client disconnect), the turn is abandoned without a
// checkpoint write.
func (o *Orchestrator) RunTurn(ctx context.Context, threadID, userText string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if userText == "" {
			emitFatal(yield, ErrEmptyMessage)
			return
		}

		newThread := threadID == ""
		if newThread {
			threadID = thread.NewID()
			if !yield(Event{Type: EventCheckpoint, ThreadID: threadID}) {
				return
			}
		}

		history, err := o.store.History(ctx, threadID)
		if err != nil {
			emitFatal(yield, fmt.Errorf("%w: %w", ErrStorage, err))
			return
		}

		// Messages produced by this turn. Appended to the store only
		// after the whole turn succeeds.
		turn := []thread.Message{thread.UserMessage(userText)}

		onDelta := func(_ context.Context, text string) error {
			if !yield(Event{Type: EventContent, Text: text}) {
				return errStreamAborted
			}
			return nil
		}

		for round := 0; ; round++ {
			if round >= o.maxRounds {
				o.logger.Warn("turn exceeded round cap", "thread_id", threadID, "max_rounds", o.maxRounds)
				emitFatal(yield, ErrMaxRounds)
				return
			}

			assistant, err := o.model.Generate(ctx, append(history, turn...), onDelta)
			if err != nil {
				if errors.Is(err, errStreamAborted) {
					return
				}
				emitFatal(yield, fmt.Errorf("%w: %w", ErrModel, err))
				return
			}
			turn = append(turn, assistant)

			if len(assistant.ToolCalls) == 0 {
				break
			}

			results, ok := o.executeTools(ctx, assistant.ToolCalls, yield)
			if !ok {
				return
			}
			for i, call := range assistant.ToolCalls {
				payload, err := json.Marshal(results[i])
				if err != nil {
					emitFatal(yield, fmt.Errorf("encoding result for call %s: %w", call.ID, err))
					return
				}
				turn = append(turn, thread.ToolMessage(call, payload))
			}
		}

		// A canceled context at this point means the client is gone;
		// abandon the turn rather than checkpoint a half-delivered one.
		if ctx.Err() != nil {
			o.logger.Debug("turn abandoned before checkpoint", "thread_id", threadID)
			return
		}

		if err := o.store.Append(ctx, threadID, turn); err != nil {
			emitFatal(yield, fmt.Errorf("%w: %w", ErrStorage, err))
			return
		}

		o.logger.Debug("turn completed", "thread_id", threadID, "messages", len(turn))
		yield(Event{Type: EventEnd, Text: turn[len(turn)-1].Text})
	}
}

// executeTools runs one round of tool calls.
//
// Invocations run concurrently, but events keep declaration order: all
// start events first, then the end events, each in the order the model
// declared the calls. Returns ok=false when the consumer stopped.
func (o *Orchestrator) executeTools(ctx context.Context, calls []thread.ToolCall, yield func(Event) bool) ([]tools.Result, bool) {
	results := make([]tools.Result, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = o.tools.Invoke(ctx, call.Name, call.Args)
			return nil
		})
	}

	for _, call := range calls {
		if !yield(Event{Type: EventToolStart, Call: call}) {
			// Drain the workers before walking away from the results slice.
			_ = g.Wait()
			return nil, false
		}
	}

	_ = g.Wait() // workers only write results, never fail

	for i, call := range calls {
		if !yield(Event{Type: EventToolEnd, Call: call, Result: &results[i]}) {
			return nil, false
		}
	}
	return results, true
}

// emitFatal reports err and terminates the sequence. The checkpoint is
// deliberately not written: a failed turn leaves no trace in history.
func emitFatal(yield func(Event) bool, err error) {
	if !yield(Event{Type: EventError, Err: err}) {
		return
	}
	yield(Event{Type: EventEnd})
}
