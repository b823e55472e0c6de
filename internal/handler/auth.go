package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/careerprep/internal/apperr"
	appI18n "github.com/pavelanni/careerprep/internal/i18n"
	"github.com/pavelanni/careerprep/internal/model"
)

const sessionCookieName = "session"

// authToken returns the bearer token, falling back to the session cookie.
func authToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// requireAuth is middleware that resolves the caller from a bearer token or
// session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := authToken(r)
		if token == "" {
			writeError(w, r, apperr.Unauthorized)
			return
		}

		authSess, err := h.store.GetAuthSession(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if authSess == nil {
			writeError(w, r, apperr.Unauthorized)
			return
		}

		user, err := h.store.GetUserByID(r.Context(), authSess.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user == nil || !user.Active {
			writeError(w, r, apperr.Unauthorized)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated caller's id. Only valid behind requireAuth.
func userID(r *http.Request) int64 {
	return model.UserFromContext(r.Context()).ID
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.Active {
		h.loginFailed(w, r)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.loginFailed(w, r)
		return
	}

	sess, err := h.store.CreateAuthSession(r.Context(), user.ID, r.UserAgent(), h.config.SessionTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.InfoContext(r.Context(), "user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.ID, ExpiresAt: sess.ExpiresAt, User: user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAuthSession(r.Context(), authToken(r)); err != nil {
		slog.WarnContext(r.Context(), "delete auth session", "error", err)
	}
	h.sessions.Drop(userID(r))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleListLogins shows the caller's live logins so stray devices can be
// spotted.
func (h *Handler) handleListLogins(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListAuthSessions(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	current := authToken(r)
	out := make([]loginView, len(sessions))
	for i, s := range sessions {
		out[i] = loginView{AuthSession: s, Current: s.ID == current}
	}
	writeJSON(w, http.StatusOK, out)
}

type loginView struct {
	model.AuthSession
	Current bool `json:"current"`
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, errorBody{
		Error: appI18n.T(r.Context(), "InvalidCredentials"),
		Kind:  apperr.KindUnauthorized,
	})
}
