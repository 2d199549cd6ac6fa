package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mutumwa-ai/chat-platform/internal/middleware"
	"github.com/mutumwa-ai/chat-platform/internal/reply"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

// Deps are the collaborators of the API router. Events, EventSource, Replies
// and NATS may be nil.
type Deps struct {
	Store       MemoryStore
	Events      EventPublisher
	EventSource EventSource
	Replies     reply.Generator
	NATS        Connectivity
	Logger      *logger.Logger

	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the API router.
func NewRouter(d Deps) http.Handler {
	healthHandler := NewHealthHandler(d.Store, d.NATS)
	sessionHandler := NewSessionHandler(d.Store, d.Events, d.Logger)
	messageHandler := NewMessageHandler(d.Store, d.Events, d.Logger)
	replyHandler := NewReplyHandler(d.Replies, d.Logger)
	eventHandler := NewEventHandler(d.EventSource, d.Logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins...))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if d.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(d.RateLimitRequests, d.RateLimitWindow))
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)

				r.Get("/messages", messageHandler.List)
				if d.RateLimitRequests > 0 {
					r.With(middleware.SessionRateLimit(d.RateLimitRequests, d.RateLimitWindow)).
						Post("/messages", messageHandler.Append)
				} else {
					r.Post("/messages", messageHandler.Append)
				}

				r.Get("/events", eventHandler.Stream)
			})
		})

		r.Post("/reply", replyHandler.Reply)

		r.Get("/languages", ListLanguages)
		r.Get("/languages/{code}/suggestions", LanguageSuggestions)
	})

	return r
}
