/*
server.go - HTTP router and middleware configuration

ROUTER: chi

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the browser frontend

ROUTE GROUPS:
  /api/sales/*       Sales log
  /api/purchases/*   Purchase log
  /api/articles/*    Product catalog
  /api/inventory/*   Stock ledger
  /api/report        Totals
  /api/export*       Backup download (JSON, XLSX)
  /api/import        Backup upload
  /api/reset         Wipe all data
  /health            Liveness

SECURITY NOTE:
  No authentication. The service is meant for a single user on a trusted host.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
			r.Delete("/{id}", h.DeleteSale)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.ListPurchases)
			r.Post("/", h.CreatePurchase)
			r.Delete("/{id}", h.DeletePurchase)
		})

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", h.ListArticles)
			r.Post("/", h.CreateArticle)
			r.Get("/lookup", h.LookupArticle)
			r.Delete("/{id}", h.DeleteArticle)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.ListInventory)
			r.Put("/{product}", h.SetStock)
			r.Post("/{product}/adjust", h.AdjustStock)
		})

		r.Get("/report", h.GetReport)
		r.Get("/export", h.Export)
		r.Get("/export.xlsx", h.ExportSpreadsheet)
		r.Post("/import", h.Import)
		r.Post("/reset", h.Reset)
	})

	return r
}
