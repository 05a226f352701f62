// Package sse provides Server-Sent Events utilities for streaming
// responses.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer wraps an http.ResponseWriter for SSE streaming.
//
// Frames are data-only records: the frame type lives inside the JSON
// payload rather than in an SSE event name, so an EventSource client
// handles every frame through a single onmessage listener.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets the response headers.
// Fails when the underlying writer cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteJSON sends one frame as a data-only SSE record and flushes it.
// The payload must not contain raw newlines after encoding; json.Marshal
// guarantees that for any value it accepts.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	w.flusher.Flush()
	return nil
}
