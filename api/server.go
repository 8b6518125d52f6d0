/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:         Request logging
  2. Recoverer:      Panic recovery (500 instead of crash)
  3. RequestID:      Unique ID per request for tracing
  4. CORS:           Cross-origin requests for frontend
  5. ChannelAuth:    Shared-secret channel authentication (optional)
  6. CallerIdentity: X-Caller header -> request context

ROUTE GROUPS:
  /api/campaigns/*   Campaign lifecycle, funding, withdrawal, payment
  /api/providers/*   Provider registry, earnings, withdrawal
  /api/locations     Marketplace location listing
  /api/transfers     Caller's transfer journal
  /healthz           Liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Identity and channel auth
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the router's deployment knobs.
type RouterConfig struct {
	// ChannelSecret, when non-empty, is required in X-Channel-Secret on
	// every /api request.
	ChannelSecret string
	// AllowedOrigins for CORS. Empty means localhost dev defaults.
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CallerHeader, ChannelSecretHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(ChannelAuth(cfg.ChannelSecret))
		r.Use(CallerIdentity)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Delete("/{id}", h.CloseCampaign)
			r.Get("/{id}/balance", h.GetCampaignBalance)
			r.Post("/{id}/fund", h.FundCampaign)
			r.Post("/{id}/withdraw", h.WithdrawCampaignFunds)
			r.Post("/{id}/pay", h.PayProvider)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.ListProviders)
			r.Post("/", h.RegisterProvider)
			r.Get("/mine", h.ListOwnProviders)
			r.Post("/{id}/locations", h.AddLocation)
			r.Get("/{id}/earnings", h.GetProviderEarnings)
			r.Get("/{id}/earnings/breakdown", h.GetEarningsBreakdown)
			r.Post("/{id}/withdraw", h.WithdrawProviderEarnings)
		})

		r.Get("/locations", h.ListLocations)
		r.Get("/transfers", h.ListTransfers)
	})

	return r
}
