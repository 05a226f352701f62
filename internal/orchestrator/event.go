package orchestrator

import (
	"github.com/parleyhq/parley/internal/thread"
	"github.com/parleyhq/parley/internal/tools"
)

// EventType identifies what a turn event carries.
type EventType int

const (
	// EventCheckpoint announces the ID of a newly created thread.
	// Emitted at most once per turn, always first, and only when the
	// turn started the thread.
	EventCheckpoint EventType = iota

	// EventContent carries one streamed fragment of assistant text.
	EventContent

	// EventToolStart announces a tool invocation. Start events for the
	// calls of one assistant message appear in declaration order.
	EventToolStart

	// EventToolEnd carries a completed tool invocation's result, in the
	// same declaration order as the start events.
	EventToolEnd

	// EventError reports the fatal error that ended the turn.
	// At most one per turn, followed only by EventEnd.
	EventError

	// EventEnd terminates every turn, exactly once, always last. On a
	// completed turn it carries the final assistant text so synchronous
	// consumers need not reassemble it from deltas.
	EventEnd
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCheckpoint:
		return "checkpoint"
	case EventContent:
		return "content"
	case EventToolStart:
		return "tool_start"
	case EventToolEnd:
		return "tool_end"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one observable step of a running turn.
// Type determines which fields are set.
type Event struct {
	Type EventType

	// ThreadID is set on EventCheckpoint.
	ThreadID string

	// Text is one streamed fragment on EventContent, or the whole final
	// assistant text on EventEnd of a completed turn.
	Text string

	// Call is set on EventToolStart and EventToolEnd.
	Call thread.ToolCall

	// Result is set on EventToolEnd.
	Result *tools.Result

	// Err is set on EventError.
	Err error
}
