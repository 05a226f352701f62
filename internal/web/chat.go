package web

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/orchestrator"
	"github.com/parleyhq/parley/internal/stream"
	"github.com/parleyhq/parley/internal/web/sse"
)

// maxChatBody caps the request body of the synchronous chat endpoint.
const maxChatBody = 1 << 20

// turnRunner is the orchestration dependency of the chat endpoints,
// satisfied by orchestrator.Orchestrator.
type turnRunner interface {
	RunTurn(ctx context.Context, threadID, userText string) iter.Seq[orchestrator.Event]
}

// chatHandler serves the streaming and synchronous chat endpoints.
type chatHandler struct {
	runner      turnRunner
	turnTimeout time.Duration
	logger      log.Logger
}

// turnContext derives the per-turn context. The deadline bounds the
// whole turn, model calls and tool rounds included.
func (h *chatHandler) turnContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.turnTimeout > 0 {
		return context.WithTimeout(r.Context(), h.turnTimeout)
	}
	return context.WithCancel(r.Context())
}

// stream handles GET /api/v1/chat/stream.
//
// Query parameters: message (required), checkpoint_id (optional; empty
// starts a new thread). The response is an SSE stream of data-only JSON
// frames; see the stream package for the frame shapes.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "query parameter 'message' is required", h.logger)
		return
	}
	checkpointID := r.URL.Query().Get("checkpoint_id")

	writer, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("streaming not supported", "error", err)
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	ctx, cancel := h.turnContext(r)
	defer cancel()
	h.logger.Debug("chat stream started", "checkpoint_id", checkpointID)

	for ev := range h.runner.RunTurn(ctx, checkpointID, message) {
		if err := writer.WriteJSON(stream.FromEvent(ev)); err != nil {
			// Client gone; stopping the iteration abandons the turn.
			h.logger.Debug("chat stream write failed", "error", err)
			return
		}
	}
}

// chatRequest is the body of POST /api/v1/chat.
type chatRequest struct {
	Message      string `json:"message"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// chatResponse is the body of a successful synchronous chat reply.
type chatResponse struct {
	Reply        string `json:"reply"`
	CheckpointID string `json:"checkpoint_id"`
}

// send handles POST /api/v1/chat, the synchronous variant: the whole
// turn runs to completion and the final assistant text, carried by the
// end event, is returned as one JSON response. Content deltas and tool
// events are consumed silently; text streamed before a tool round is
// not part of the reply.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}

	ctx, cancel := h.turnContext(r)
	defer cancel()

	checkpointID := req.CheckpointID
	var reply string
	var errCode, errMsg string

	for ev := range h.runner.RunTurn(ctx, checkpointID, req.Message) {
		switch ev.Type {
		case orchestrator.EventCheckpoint:
			checkpointID = ev.ThreadID
		case orchestrator.EventEnd:
			reply = ev.Text
		case orchestrator.EventError:
			frame := stream.FromEvent(ev)
			errCode, errMsg = frame.Code, frame.Message
		}
	}

	if errCode != "" {
		status := http.StatusBadGateway
		if errCode == stream.CodeBadInput {
			status = http.StatusBadRequest
		}
		writeError(w, status, errCode, errMsg, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:        reply,
		CheckpointID: checkpointID,
	}, h.logger)
}
