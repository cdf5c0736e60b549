package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/wayfarerhq/wayfarer-api/internal/api/auth"
	"github.com/wayfarerhq/wayfarer-api/internal/api/journey"
)

// Config contains the handlers and middleware the router wires together.
// Server-wide middleware (request ID, logger, recoverer) is applied before
// mounting this router in main.go.
type Config struct {
	AuthHandler            *auth.AuthHandler
	JourneyHandler         *journey.JourneyHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes, no JWT required
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Put("/auth/update-password", cfg.AuthHandler.UpdatePassword)

			r.Route("/journeys", func(r chi.Router) {
				r.Get("/", cfg.JourneyHandler.ListJourneys)
				r.Post("/", cfg.JourneyHandler.CreateJourney)
				r.Post("/import", cfg.JourneyHandler.ImportJourney)

				r.Route("/{journeyID}", func(r chi.Router) {
					r.Get("/", cfg.JourneyHandler.GetJourney)
					r.Put("/", cfg.JourneyHandler.UpdateJourney)
					r.Delete("/", cfg.JourneyHandler.DeleteJourney)

					r.Get("/itinerary", cfg.JourneyHandler.GetItinerary)
					r.Get("/markers", cfg.JourneyHandler.GetMarkers)
					r.Post("/days", cfg.JourneyHandler.AddDay)

					r.Post("/stops", cfg.JourneyHandler.AddStop)
					r.Put("/stops/{stopID}", cfg.JourneyHandler.UpdateStop)
					r.Delete("/stops/{stopID}", cfg.JourneyHandler.RemoveStop)
				})
			})
		})
	})

	return r
}
