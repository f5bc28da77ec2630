package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meeraclinic/clinic-ai-platform/internal/http/handlers"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ChatHandler         *handlers.ChatHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	MetricsHandler      http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.ChatHandler != nil {
		r.Post("/api/chat", cfg.ChatHandler.Chat)
	}
	if cfg.AppointmentsHandler != nil {
		r.Route("/api/appointments", func(r chi.Router) {
			r.Get("/", cfg.AppointmentsHandler.Query)
			r.Post("/", cfg.AppointmentsHandler.Book)
			r.Get("/storage", cfg.AppointmentsHandler.LoadStorage)
			r.Post("/storage", cfg.AppointmentsHandler.SaveStorage)
		})
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
