package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// Routes wires every endpoint into a mux wrapped with request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.LoginPage(w, r)
		} else {
			h.LoginHandler(w, r)
		}
	})
	mux.HandleFunc("/login/2fa", h.Verify2FAHandler)
	mux.HandleFunc("/logout", h.LogoutHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics)
	}

	// Protected routes
	mux.HandleFunc("/", h.RequireLogin(h.IndexHandler))
	mux.HandleFunc("/thoughts", h.AuthMiddleware(h.ThoughtsHandler))
	mux.HandleFunc("/vapid_public_key", h.AuthMiddleware(h.VAPIDPublicKeyHandler))
	mux.HandleFunc("/subscription", h.AuthMiddleware(h.SubscriptionHandler))
	mux.HandleFunc("/upload_image", h.AuthMiddleware(h.UploadImageHandler))
	mux.HandleFunc("/events", h.AuthMiddleware(h.SSEHandler))

	// PWA assets. The service worker is served from the root so its scope
	// covers the whole app.
	if h.staticDir != "" {
		fs := http.FileServer(http.Dir(h.staticDir))
		mux.Handle("/static/", http.StripPrefix("/static/", fs))
		mux.HandleFunc("/sw.js", h.serveStatic("sw.js"))
		mux.HandleFunc("/manifest.json", h.serveStatic("manifest.json"))
	}
	if h.uploadDir != "" && strings.HasPrefix(h.uploadPrefix, "/") {
		prefix := strings.TrimSuffix(h.uploadPrefix, "/") + "/"
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(h.uploadDir))))
	}

	return Logger(h.log, mux)
}

func (h *Handler) serveStatic(name string) http.HandlerFunc {
	path := filepath.Join(h.staticDir, name)
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}
}
