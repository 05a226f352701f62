// Package stream maps orchestrator events to the wire frames clients
// consume. The mapping is pure so it can be tested without a server.
package stream

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/orchestrator"
)

// Frame type discriminants, carried in the "type" field.
const (
	TypeCheckpoint = "checkpoint"
	TypeContent    = "content"
	TypeToolStart  = "tool_start"
	TypeToolEnd    = "tool_end"
	TypeError      = "error"
	TypeEnd        = "end"
)

// Error codes carried by error frames.
const (
	CodeMaxRounds = "max_rounds_exceeded"
	CodeModel     = "model_failure"
	CodeStorage   = "storage_failure"
	CodeBadInput  = "invalid_request"
	CodeInternal  = "internal_error"
)

// Frame is one SSE data record. Type determines which other fields are
// present; absent fields are omitted from the JSON. Error frames carry
// the human-readable message in "message" and a stable machine code in
// "code".
type Frame struct {
	Type         string          `json:"type"`
	CheckpointID string          `json:"checkpoint_id,omitempty"`
	Content      string          `json:"content,omitempty"`
	CallID       string          `json:"call_id,omitempty"`
	Tool         string          `json:"tool,omitempty"`
	Args         json.RawMessage `json:"args,omitempty"`
	Output       any             `json:"output,omitempty"`
	Code         string          `json:"code,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// FromEvent translates one orchestrator event to its wire frame.
// The translation is one-to-one; no event is dropped or merged.
func FromEvent(ev orchestrator.Event) Frame {
	switch ev.Type {
	case orchestrator.EventCheckpoint:
		return Frame{Type: TypeCheckpoint, CheckpointID: ev.ThreadID}
	case orchestrator.EventContent:
		return Frame{Type: TypeContent, Content: ev.Text}
	case orchestrator.EventToolStart:
		return Frame{
			Type:   TypeToolStart,
			CallID: ev.Call.ID,
			Tool:   ev.Call.Name,
			Args:   ev.Call.Args,
		}
	case orchestrator.EventToolEnd:
		return Frame{
			Type:   TypeToolEnd,
			CallID: ev.Call.ID,
			Tool:   ev.Call.Name,
			Output: ev.Result,
		}
	case orchestrator.EventError:
		code, msg := classifyError(ev.Err)
		return Frame{Type: TypeError, Code: code, Message: msg}
	case orchestrator.EventEnd:
		return Frame{Type: TypeEnd}
	default:
		return Frame{Type: TypeError, Code: CodeInternal, Message: "unknown event"}
	}
}

// classifyError maps fatal turn errors to stable wire codes.
func classifyError(err error) (code, message string) {
	if err == nil {
		return CodeInternal, "unknown error"
	}

	code = CodeInternal
	switch {
	case errors.Is(err, orchestrator.ErrMaxRounds):
		code = CodeMaxRounds
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		code = CodeBadInput
	case errors.Is(err, model.ErrEmptyResponse), errors.Is(err, orchestrator.ErrModel):
		code = CodeModel
	case errors.Is(err, orchestrator.ErrStorage):
		code = CodeStorage
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeModel
	}

	return code, err.Error()
}
