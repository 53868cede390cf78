package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nachitzaid/food4u/internal/auth"
	"github.com/nachitzaid/food4u/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Cart   *CartHandler
	Menu   *MenuHandler
	Orders *OrdersHandler
}

type RouterOptions struct {
	Logger         *logger.Logger
	Verifier       auth.Verifier
	RequestTimeout time.Duration
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware(log))
	r.Use(RequestLogger(log))
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/menu", h.Menu.ListMenu)
		r.Get("/menu/{id}", h.Menu.GetMenuItem)
		r.Get("/deals", h.Menu.ListActiveDeals)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(opts.Verifier, log))

			r.Post("/session", h.Cart.StartSession)
			r.Delete("/session", h.Cart.EndSession)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{menuItemId}", h.Cart.UpdateAllVariantsQuantity)
				r.Delete("/items/{menuItemId}", h.Cart.RemoveAllVariants)
				r.Put("/lines/{key}", h.Cart.UpdateLineQuantity)
				r.Delete("/lines/{key}", h.Cart.RemoveLine)
				r.Post("/lines/{key}/replace", h.Cart.ReplaceLine)
			})

			r.Post("/checkout", h.Orders.Checkout)
			r.Get("/orders", h.Orders.ListOrders)
			r.Get("/orders/{id}", h.Orders.GetOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Post("/menu", h.Menu.CreateMenuItem)
				r.Put("/menu/{id}", h.Menu.UpdateMenuItem)
				r.Delete("/menu/{id}", h.Menu.DeleteMenuItem)
				r.Post("/menu/{id}/image", h.Menu.UploadImage)

				r.Get("/deals", h.Menu.ListAllDeals)
				r.Post("/deals", h.Menu.CreateDeal)
				r.Put("/deals/{id}", h.Menu.UpdateDeal)
				r.Delete("/deals/{id}", h.Menu.DeleteDeal)

				r.Get("/orders", h.Orders.ListAllOrders)
				r.Patch("/orders/{id}/status", h.Orders.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "food4u-http",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)
}
