package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/EcommerceGo/storefront/internal/service"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
)

// RouterConfig holds the bridge settings that shape the router.
type RouterConfig struct {
	InstallationID string
	// AllowedCIDRs restricts callers by remote address. Empty disables the check.
	AllowedCIDRs []string
	CORS         middleware.CORSConfig
}

// Services bundles the services the bridge exposes.
type Services struct {
	Cart    *service.CartService
	Sync    *service.SyncService
	Session *service.SessionService
}

// NewRouter creates a chi router with all bridge routes registered.
func NewRouter(
	svc Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	if len(cfg.AllowedCIDRs) > 0 {
		r.Use(middleware.IPAllowlist(cfg.AllowedCIDRs, logger))
	}
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger, cfg.InstallationID))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(svc.Cart, svc.Sync, logger)
	sessionHandler := NewSessionHandler(svc.Session, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Get("/products/{id}", cartHandler.ProductInCart)
			r.Post("/refresh", cartHandler.Refresh)
			r.Post("/mount", cartHandler.Mount)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateItem)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
			r.Post("/items/{id}/increment", cartHandler.IncrementItem)
			r.Post("/items/{id}/decrement", cartHandler.DecrementItem)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Current)
			r.Post("/login", sessionHandler.Login)
			r.Post("/register", sessionHandler.Register)
			r.Post("/logout", sessionHandler.Logout)
		})
	})

	return r
}
