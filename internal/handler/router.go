package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/coffee-rent-bot/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware административного API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/deals", h.ListDeals)
		r.Route("/deals/{id}", func(r chi.Router) {
			r.Get("/", h.GetDeal)
			r.Get("/profit-share", h.GetProfitShare)
			r.Post("/payments", h.RecordPayment)
		})

		r.Get("/summary", h.GetSummary)

		r.Get("/reports/deals.xlsx", h.DealsReport)
		r.Get("/reports/profit-share.xlsx", h.ProfitShareReport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
