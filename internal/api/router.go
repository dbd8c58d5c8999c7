package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/api/middleware"
	"github.com/eldtechnologies/ledgerchat/internal/crypto"
	"github.com/eldtechnologies/ledgerchat/internal/handlers"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

// maxBodyBytes fits the largest operation: a full message plus accounts and
// JSON framing.
const maxBodyBytes = 8 * 1024

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, nonces store.NonceCache) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			crypto.HeaderSigner, crypto.HeaderNonce, crypto.HeaderTimestamp, crypto.HeaderSignature,
		},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAuthMiddleware(nonces)

	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/health", h.Health)
	r.Get("/api", h.Root)
	r.Get("/stats", h.Stats)
	r.Get("/accounts/{address}", h.GetAccount)

	// Operations (require signature)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/contacts", h.CreateContact)
		r.Put("/contacts", h.UpdateContact)
		r.Post("/conversations", h.StartConversation)
		r.Post("/conversations/messages", h.SendMessage)
		r.Post("/groups", h.CreateGroup)
		r.Post("/groups/members", h.AddGroupMember)
	})

	return r
}
