package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kamikazebr/license-gateway/internal/server/metrics"
	"github.com/kamikazebr/license-gateway/pkg/version"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Client   *ClientHandler
	Auth     *AuthHandler
	Products *ProductHandler
	Users    *UserHandler
	Licenses *LicenseHandler
	Reports  *ReportHandler
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	JWTSecret string

	// ValidationRateLimit requests per ValidationRateWindow per client IP.
	// Zero disables limiting.
	ValidationRateLimit  int
	ValidationRateWindow time.Duration

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	DB       Pinger
}

func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)

	r.Get("/health", healthHandler(cfg.DB))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Client validation API
	r.With(ValidationTiming(cfg.Metrics)).
		Mount("/api/license", NewClientRouter(h.Client, cfg.ValidationRateLimit, cfg.ValidationRateWindow))

	// Public console routes
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signin", h.Auth.SignIn)
		r.Post("/signup", h.Auth.SignUp)
		r.Post("/signout", h.Auth.SignOut)
		r.With(AuthMiddleware(cfg.JWTSecret)).Get("/user", h.Auth.CurrentUser)
	})

	// Protected console routes
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{id}", h.Products.Get)
			r.Group(func(r chi.Router) {
				r.Use(AdminMiddleware)
				r.Post("/", h.Products.Create)
				r.Put("/{id}", h.Products.Update)
				r.Delete("/{id}", h.Products.Delete)
			})
		})

		r.Route("/licenses", func(r chi.Router) {
			r.Get("/", h.Licenses.List)
			r.Get("/{id}", h.Licenses.Get)
			r.Get("/{id}/qr", h.Licenses.QRCode)
			r.Get("/{id}/activations", h.Licenses.ListActivations)
			r.Post("/{id}/activations", h.Licenses.Activate)
			r.Delete("/{id}/activations/{deviceID}", h.Licenses.Deactivate)
			r.Group(func(r chi.Router) {
				r.Use(AdminMiddleware)
				r.Post("/", h.Licenses.Create)
				r.Put("/{id}", h.Licenses.Update)
				r.Delete("/{id}", h.Licenses.Delete)
			})
		})

		r.Get("/analytics/dashboard-stats", h.Reports.DashboardStats)

		r.Group(func(r chi.Router) {
			r.Use(AdminMiddleware)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.Users.List)
				r.Get("/{id}", h.Users.Get)
				r.Put("/{id}", h.Users.Update)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/license-report", h.Reports.LicenseReport)
				r.Get("/user-report", h.Reports.UserReport)
				r.Get("/revenue-report", h.Reports.RevenueReport)
				r.Get("/full-report", h.Reports.FullReport)
			})
		})
	})

	return r
}

// NewClientRouter serves /test and /client with the validation wire format
// for unknown paths. limit <= 0 disables per-IP rate limiting.
func NewClientRouter(h *ClientHandler, limit int, window time.Duration) chi.Router {
	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	r.Get("/test", h.Probe)
	if limit > 0 {
		if window <= 0 {
			window = time.Minute
		}
		r.With(httprate.Limit(
			limit,
			window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(h.RateLimited),
		)).Post("/client", h.Validate)
	} else {
		r.Post("/client", h.Validate)
	}
	return r
}

type healthResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Database string            `json:"database"`
	Build    version.BuildInfo `json:"build"`
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:   "healthy",
			Service:  "license-gateway",
			Database: "ok",
			Build:    version.Info(),
		}
		status := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				resp.Status = "degraded"
				resp.Database = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		respondJSON(w, status, resp)
	}
}
