// Package handler exposes the REST surface: request parsing, principal
// checks, and mapping of domain results and errors onto the JSON envelope the
// clients expect.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/atelier-api/internal/domain/analytics"
	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string

	// Debug includes internal error detail in 500 responses. Keep off in
	// production.
	Debug bool
}

// Handler serves the REST API, delegating business logic to the injected
// domain services.
type Handler struct {
	products     product.Repository
	orders       *order.Service
	analytics    *analytics.Service
	imageBaseURL string
	debug        bool
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders *order.Service,
	analyticsService *analytics.Service,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		analytics:    analyticsService,
		imageBaseURL: cfg.ImageBaseURL,
		debug:        cfg.Debug,
	}
}

// Routes builds the API router. Catalog reads are public; everything under
// /orders and /admin requires an authenticated principal, with admin-only
// routes additionally gated on the administrator role.
func (h *Handler) Routes(sec *Security) http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)

	r.Route("/orders", func(r chi.Router) {
		r.Use(sec.Authenticate)

		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)

		r.With(sec.RequireAdmin).Get("/admin/stats", h.AdminStats)
		r.With(sec.RequireAdmin).Get("/export/csv", h.ExportCSV)

		r.Get("/{ref}", h.GetOrder)
		r.With(sec.RequireAdmin).Put("/{ref}/status", h.UpdateStatus)
		r.Post("/{ref}/communication", h.AddMessage)
		r.Put("/{ref}/cancel", h.CancelOrder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(sec.Authenticate, sec.RequireAdmin)
		r.Get("/analytics", h.Dashboard)
	})

	return r
}
