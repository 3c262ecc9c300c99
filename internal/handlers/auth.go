package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"thought-stream-go/internal/models"

	"go.uber.org/zap"
)

const (
	sessionName   = "thought-stream-session"
	sessionMaxAge = 30 * 24 * 60 * 60

	keyUsername   = "username"
	keyPending2FA = "pending_2fa"
)

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.RenderPage(w, "login", nil)
}

// LoginHandler checks the password. When a TOTP secret is configured the
// session is only marked as pending until Verify2FAHandler accepts a code.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if !h.checkCredentials(req.Username, req.Password) {
		h.log.Warn("failed login", zap.String("username", req.Username), zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	if h.User.TOTPEnabled() {
		delete(session.Values, keyUsername)
		session.Values[keyPending2FA] = h.User.Username
		if err := session.Save(r, w); err != nil {
			h.sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requires_2fa": true})
		return
	}

	session.Values[keyUsername] = h.User.Username
	if err := session.Save(r, w); err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "redirect": "/"})
}

// Verify2FAHandler completes a login started by LoginHandler.
func (h *Handler) Verify2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	pending, _ := session.Values[keyPending2FA].(string)
	if pending == "" || pending != h.User.Username {
		writeError(w, http.StatusUnauthorized, "No login in progress")
		return
	}

	if !models.VerifyTOTPCode(h.User.TOTPSecret, req.Code) {
		h.log.Warn("invalid verification code", zap.String("username", pending))
		writeError(w, http.StatusUnauthorized, "Invalid verification code")
		return
	}

	delete(session.Values, keyPending2FA)
	session.Values[keyUsername] = pending
	if err := session.Save(r, w); err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "redirect": "/"})
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, _ := h.sessions.Get(r, sessionName)
	delete(session.Values, keyUsername)
	delete(session.Values, keyPending2FA)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.sessionError(w, err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// AuthMiddleware rejects API calls without a signed-in session.
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.currentUser(r) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// RequireLogin sends page requests without a session to the login form.
func (h *Handler) RequireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.currentUser(r) == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (h *Handler) currentUser(r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return ""
	}
	username, _ := session.Values[keyUsername].(string)
	return username
}

func (h *Handler) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.User.Username)) == 1
	passOK := h.User.CheckPassword(password)
	return userOK && passOK
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	h.log.Error("failed to save session", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Failed to save session")
}
