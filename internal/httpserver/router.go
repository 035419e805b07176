package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/IgoorDrt/ErroOps-v1/internal/blob"
	"github.com/IgoorDrt/ErroOps-v1/internal/chatview"
	"github.com/IgoorDrt/ErroOps-v1/internal/config"
	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/security"
	"github.com/IgoorDrt/ErroOps-v1/internal/service"
	"github.com/IgoorDrt/ErroOps-v1/internal/ws"
)

// Dependencies are the long-lived collaborators the router hands to its
// handlers.
type Dependencies struct {
	Tokens        *security.TokenService
	Auth          *service.AuthService
	Users         *service.UserService
	Conversations *service.ConversationService
	Profiles      domain.ProfileRepository
	Blobs         *blob.Filesystem
	Hub           *ws.Hub
	Chat          chatview.Deps
	Logger        zerolog.Logger
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(cfg *config.Config, d Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": cfg.AppName, "version": "1.0.0"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Mount("/docs", DocsRoutes())

	// WebSocket conversations; long-lived, so outside the request timeout
	r.Get("/ws", ws.MakeHandler(d.Hub, d.Auth, d.Chat, cfg.CORSOrigins, d.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(d.Auth))
			r.Post("/login", handleLogin(d.Auth))
		})

		// Attachment bytes are linked from messages and fetched without a token
		r.Mount("/uploads", UploadRoutes(d.Blobs))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Tokens, d.Profiles))

			r.Post("/auth/logout", handleLogout(d.Auth, d.Hub))
			r.Get("/auth/me", handleMe())

			r.Route("/users", func(r chi.Router) {
				r.Patch("/me", handleUpdateMe(d.Users))
				r.Get("/{userID}", handleGetUser(d.Users))
			})

			r.Route("/chats/{peerID}", func(r chi.Router) {
				r.Get("/messages", handleHistory(d.Conversations))
				r.Post("/attachments", handleAttach(d.Hub, cfg.MaxUploadBytes))
			})
			r.Get("/conversations/{conversationID}/messages", handleConversation(d.Conversations))
		})
	})

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrInvalidMessageType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrMissingParticipant):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrNotMounted):
		status = http.StatusConflict
	case errors.Is(err, blob.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
