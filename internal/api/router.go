package api

import (
	"net/http"
	"time"

	"chatbridge-backend/internal/config"
	"chatbridge-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup.
type RouterDependencies struct {
	ChatHandler *handlers.ChatHandlers
	Config      *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Longer than the model client's 90s HTTP timeout so slow provider calls
	// fail with a 502, not a canceled context.
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.ChatHandler == nil {
		panic("ChatHandler dependency is nil in router setup")
	}
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", deps.ChatHandler.HandleCreateChat)
		r.Post("/{chatID}", deps.ChatHandler.HandleSendMessage)
	})

	return r
}
