// Package tools provides the tool registry and the external API tools
// the model can call during a turn.
//
// Tools never fail a turn. Every invocation produces a Result: on
// success it carries the tool's data, on failure a structured error the
// model can read and recover from (retry with fixed arguments, try a
// different tool, or explain the failure to the user).
package tools

import "fmt"

// Status discriminates the two Result variants.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Error codes attached to failed Results.
const (
	ErrCodeUnknownTool      = "unknown_tool"      // name not in the registry
	ErrCodeInvalidArguments = "invalid_arguments" // arguments failed to decode or validate
	ErrCodeTimeout          = "timeout"           // per-call deadline exceeded
	ErrCodeNetwork          = "network"           // upstream API unreachable or returned an error
	ErrCodeNotConfigured    = "not_configured"    // tool requires configuration that is missing
	ErrCodeInternal         = "internal"          // tool panicked or misbehaved
)

// Error is the structured failure payload of a Result.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a tool invocation. Exactly one variant:
// success carries Data, error carries Error.
type Result struct {
	Status Status `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Success builds a success Result carrying data.
func Success(data any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Failure builds an error Result with the given code and message.
func Failure(code, format string, args ...any) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}
