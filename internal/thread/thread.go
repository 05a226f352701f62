// Package thread defines the conversation history model and checkpoint
// storage for parley.
//
// A thread is an append-only sequence of messages identified by an opaque
// ID. The orchestrator reads the full history at the start of a turn and
// appends the messages the turn produced in a single atomic write.
package thread

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by the model.
// ID correlates the call with its later result message.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Message is one entry in a thread's history.
//
// The role determines which fields are meaningful:
//   - user: Text
//   - assistant: Text and/or ToolCalls (at least one of the two)
//   - tool: ToolCallID, ToolName, and Result (references one assistant ToolCall)
//
// Messages are never mutated after being appended.
type Message struct {
	Role       Role            `json:"role"`
	Text       string          `json:"text,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// UserMessage builds a user message containing text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// ToolMessage builds a tool message carrying the result of one tool call.
func ToolMessage(call ToolCall, result json.RawMessage) Message {
	return Message{
		Role:       RoleTool,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Result:     result,
	}
}

// ErrEmptyAppend indicates Append was called with no messages.
var ErrEmptyAppend = errors.New("no messages to append")

// Store persists thread histories.
//
// History returns the empty slice for an unknown thread ID; resuming an
// unknown thread starts a fresh conversation rather than failing.
// Append is atomic per thread: either all messages become visible in
// order, or none do. Appends to the same thread serialize; appends to
// distinct threads may proceed concurrently.
type Store interface {
	History(ctx context.Context, threadID string) ([]Message, error)
	Append(ctx context.Context, threadID string, msgs []Message) error
}

// NewID generates a new opaque thread ID.
func NewID() string {
	return uuid.NewString()
}
