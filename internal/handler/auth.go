package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/kinfolk/internal/auth"
	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/middleware"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
)

type AuthHandler struct {
	db         *sql.DB
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(db *sql.DB, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{db: db, sessionTTL: sessionTTL, logger: logger}
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

// Login checks email and password and opens a session. The token is returned
// in the body and set as an HttpOnly cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var (
		user *model.User
		sess *model.Session
	)
	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		u, err := store.NewUserStore(tx).GetByEmail(r.Context(), req.Email)
		if err != nil || u == nil {
			return err
		}
		ok, err := auth.CheckPassword(u.PasswordHash, req.Password)
		if err != nil || !ok {
			return err
		}
		user = u
		sess, err = store.NewSessionStore(tx).Create(r.Context(), u.ID, h.sessionTTL)
		return err
	})
	if err != nil {
		writeError(w, h.logger, "failed to log in", err)
		return
	}
	if sess == nil {
		// Same answer for unknown email and wrong password.
		writeErrorMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: *user})
}

// Logout ends the session that authenticated the request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	err := database.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		return store.NewSessionStore(tx).Delete(r.Context(), ac.SessionID)
	})
	if err != nil {
		writeError(w, h.logger, "failed to log out", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
