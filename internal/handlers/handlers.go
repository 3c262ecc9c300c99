package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"thought-stream-go/internal/images"
	"thought-stream-go/internal/models"
	"thought-stream-go/internal/notify"
	"thought-stream-go/internal/store"
	"thought-stream-go/internal/vapid"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventSource streams newly added thoughts. Only the Redis store provides one.
type EventSource interface {
	SubscribeThoughts(ctx context.Context) (*redis.PubSub, error)
}

type Options struct {
	Store    store.Store
	Events   EventSource
	Notifier *notify.Notifier
	Images   images.Store
	// Keys is nil until the key pair has been generated.
	Keys  *vapid.KeyPair
	User  models.User
	Pages map[string]*template.Template

	PageSize      int
	ImageMaxWidth int
	SessionSecret string
	StaticDir     string
	// UploadDir is served under UploadPrefix when both are set.
	UploadDir    string
	UploadPrefix string
	Metrics      http.Handler
	Log          *zap.Logger
}

type Handler struct {
	Store    store.Store
	Events   EventSource
	Notifier *notify.Notifier
	Images   images.Store
	Keys     *vapid.KeyPair
	User     models.User
	Pages    map[string]*template.Template

	pageSize      int
	imageMaxWidth int
	staticDir     string
	uploadDir     string
	uploadPrefix  string
	metrics       http.Handler
	sessions      *sessions.CookieStore
	log           *zap.Logger
}

func NewHandler(opts Options) *Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	secret := []byte(opts.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		log.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	return &Handler{
		Store:         opts.Store,
		Events:        opts.Events,
		Notifier:      opts.Notifier,
		Images:        opts.Images,
		Keys:          opts.Keys,
		User:          opts.User,
		Pages:         opts.Pages,
		pageSize:      pageSize,
		imageMaxWidth: opts.ImageMaxWidth,
		staticDir:     opts.StaticDir,
		uploadDir:     opts.UploadDir,
		uploadPrefix:  opts.UploadPrefix,
		metrics:       opts.Metrics,
		sessions:      cookies,
		log:           log,
	}
}

func (h *Handler) RenderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.Pages[page]
	if !ok {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.log.Error("template error", zap.String("page", page), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.RenderPage(w, "index", map[string]any{
		"Username":    h.currentUser(r),
		"PushEnabled": h.Keys != nil,
		"LiveUpdates": h.Events != nil,
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"push_enabled": h.Keys != nil,
	})
}

// SSEHandler streams every new thought as a "thought" event.
func (h *Handler) SSEHandler(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	pubsub, err := h.Events.SubscribeThoughts(r.Context())
	if err != nil {
		h.log.Error("failed to subscribe to thought events", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Live updates unavailable")
		return
	}
	defer pubsub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "event: ready\ndata: connected\n\n")
	flusher.Flush()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: thought\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
