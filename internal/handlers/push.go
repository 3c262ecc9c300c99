package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"thought-stream-go/internal/models"

	"go.uber.org/zap"
)

// VAPIDPublicKeyHandler returns the applicationServerKey for PushManager.subscribe.
func (h *Handler) VAPIDPublicKeyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Keys == nil {
		writeError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.Keys.PublicKeyBase64()})
}

// SubscriptionHandler stores the browser's PushSubscription for the signed-in
// user, replacing the previous one.
func (h *Handler) SubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var sub models.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid subscription")
		return
	}
	sub.ID = h.currentUser(r)
	sub.CreatedAt = time.Now().UTC()

	if err := h.Store.SaveSubscription(r.Context(), sub); err != nil {
		h.log.Error("failed to save subscription", zap.String("subscription", sub.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	h.log.Info("push subscription saved", zap.String("subscription", sub.ID), zap.String("endpoint", sub.Endpoint))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
