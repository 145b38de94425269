package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kinfolk/internal/config"
	"github.com/dukerupert/kinfolk/internal/handler"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/middleware"
	"github.com/dukerupert/kinfolk/internal/store"
	ws "github.com/dukerupert/kinfolk/internal/websocket"
)

// Login attempts allowed per client IP per minute.
const loginRateLimit = 10

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	personH        *handler.PersonHandler
	householdH     *handler.HouseholdHandler
	imageH         *handler.ImageHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, m media.Store, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	return &Server{
		db:             db,
		hub:            hub,
		personH:        handler.NewPersonHandler(db, m, hub, cfg.MaxUploadBytes, logger.With("component", "person")),
		householdH:     handler.NewHouseholdHandler(db, m, hub, cfg.MaxUploadBytes, logger.With("component", "household")),
		imageH:         handler.NewImageHandler(db, m, logger.With("component", "image")),
		authH:          handler.NewAuthHandler(db, cfg.SessionTTL, logger.With("component", "auth")),
		sessionStore:   store.NewSessionStore(db),
		rateLimiter:    middleware.NewRateLimiter(),
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if err := s.db.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return "login:" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, loginRateLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// People
	mux.HandleFunc("GET /people", s.personH.List)
	mux.HandleFunc("POST /person", s.personH.Create)
	mux.HandleFunc("GET /person/{id}", s.personH.Get)
	mux.HandleFunc("PUT /person/{id}", s.personH.Update)
	mux.HandleFunc("GET /person/{id}/profile_image", s.personH.GetProfileImage)
	mux.HandleFunc("PUT /person/{id}/profile_image", s.personH.UploadProfileImage)
	mux.HandleFunc("GET /person/{id}/profile_images", s.personH.ListProfileImages)

	// Legacy query-string forms: PUT /person/?id= and PUT /person/profile_image?id=
	mux.HandleFunc("PUT /person/{$}", s.personH.Update)
	mux.HandleFunc("PUT /person/profile_image", s.personH.UploadProfileImage)

	// Households
	mux.HandleFunc("GET /households", s.householdH.List)
	mux.HandleFunc("POST /household", s.householdH.Create)
	mux.HandleFunc("GET /household/{id}", s.householdH.Get)
	mux.HandleFunc("GET /household/{id}/images", s.householdH.ListImages)
	mux.HandleFunc("POST /household/{id}/images", s.householdH.AddImage)

	// Addresses
	mux.HandleFunc("POST /address", s.householdH.CreateAddress)
	mux.HandleFunc("GET /address/{id}", s.householdH.GetAddress)

	// Images
	mux.HandleFunc("GET /image/{id}", s.imageH.Serve)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))
}

// Housekeeping purges expired sessions and rate-limit windows every interval
// until ctx is done.
func (s *Server) Housekeeping(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.sessionStore.DeleteExpired(ctx, now)
			if err != nil {
				s.logger.Error("purge expired sessions", "error", err)
			} else if n > 0 {
				s.logger.Info("purged expired sessions", "count", n)
			}
			s.rateLimiter.Cleanup()
		}
	}
}
