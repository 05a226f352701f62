package web

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/log"
	"github.com/parleyhq/parley/internal/thread"
)

// threadHandler serves read access to stored thread histories.
type threadHandler struct {
	store  thread.Store
	logger log.Logger
}

// messagesResponse is the body of GET /api/v1/threads/{id}/messages.
type messagesResponse struct {
	ThreadID string           `json:"thread_id"`
	Messages []thread.Message `json:"messages"`
}

// messages handles GET /api/v1/threads/{id}/messages. An unknown thread
// ID returns an empty list, mirroring how a turn against an unknown
// checkpoint starts a fresh conversation.
func (h *threadHandler) messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid thread ID", h.logger)
		return
	}

	msgs, err := h.store.History(r.Context(), id)
	if err != nil {
		h.logger.Error("listing thread messages", "error", err, "thread_id", id)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to load thread history", h.logger)
		return
	}
	if msgs == nil {
		msgs = []thread.Message{}
	}

	writeJSON(w, http.StatusOK, messagesResponse{ThreadID: id, Messages: msgs}, h.logger)
}
