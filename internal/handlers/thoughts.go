package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"thought-stream-go/internal/store"

	"go.uber.org/zap"
)

// ThoughtsHandler serves GET and POST /thoughts.
func (h *Handler) ThoughtsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListThoughtsHandler(w, r)
	case http.MethodPost:
		h.AddThoughtHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) ListThoughtsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	win := store.Paginate(0, page, h.pageSize)
	thoughts, total, err := h.Store.GetThoughts(r.Context(), win.Offset, win.Size)
	if err != nil {
		h.log.Error("failed to get thoughts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get thoughts")
		return
	}

	writeJSON(w, http.StatusOK, store.NewPage(thoughts, store.Paginate(total, page, h.pageSize)))
}

// AddThoughtHandler saves a thought and then pushes it to the author's
// subscription. The push outcome never changes the response.
func (h *Handler) AddThoughtHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Thought string `json:"thought"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Thought) == "" {
		writeError(w, http.StatusBadRequest, "Invalid thought")
		return
	}

	t, err := h.Store.AddThought(r.Context(), req.Thought)
	if err != nil {
		h.log.Error("failed to add thought", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save thought")
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyThought(context.WithoutCancel(r.Context()), h.currentUser(r), t)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}
