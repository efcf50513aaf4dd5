package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

const requestTimeout = 30 * time.Second

type RouterConfig struct {
	Logger       *slog.Logger
	AllowOrigins []string
	SessionTTL   time.Duration
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(chimw.Timeout(requestTimeout))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowOrigins))
	}

	r.Get("/health", h.Health)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(cfg.SessionTTL))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", h.SignIn)
			r.Post("/signup", h.SignUp)
			r.Post("/signout", h.SignOut)
			r.Get("/me", h.Me)
		})

		r.Get("/products", h.ListProducts)
		r.Get("/categories", h.ListCategories)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productId}", h.UpdateItem)
			r.Delete("/items/{productId}", h.RemoveItem)
		})

		r.Post("/checkout", h.Checkout)
		r.Get("/orders", h.ListOrders)
	})

	return r
}
