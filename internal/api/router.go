/**
 * @description
 * HTTP router setup for the ledger service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig carries the settings the router needs beyond the handlers.
type RouterConfig struct {
	Auth           AuthConfig
	InternalAPIKey string
	AllowedOrigins []string
}

// NewRouter creates a new Chi router and registers the ledger routes.
func NewRouter(h *Handlers, cfg RouterConfig, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", IdempotencyKeyHeader},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(cfg.InternalAPIKey))
		r.Post("/bill-payments/{id}/execute", h.ExecuteBillPaymentHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccountsHandler)
			r.Get("/verify", h.VerifyAccountsHandler)
			r.Get("/{id}", h.GetAccountHandler)
			r.Post("/{id}/statements", h.GenerateStatementHandler)
			r.Get("/{id}/statements", h.ListStatementsHandler)
		})

		r.Get("/transactions", h.ListTransactionsHandler)
		r.Post("/transfers", h.TransferHandler)

		r.Route("/beneficiaries", func(r chi.Router) {
			r.Post("/", h.CreateBeneficiaryHandler)
			r.Get("/", h.ListBeneficiariesHandler)
			r.Put("/{id}", h.UpdateBeneficiaryHandler)
			r.Delete("/{id}", h.DeleteBeneficiaryHandler)
		})

		r.Route("/bill-payments", func(r chi.Router) {
			r.Post("/", h.ScheduleBillPaymentHandler)
			r.Get("/", h.ListBillPaymentsHandler)
			r.Get("/{id}", h.GetBillPaymentHandler)
			r.Delete("/{id}", h.CancelBillPaymentHandler)
		})

		r.Route("/support/tickets", func(r chi.Router) {
			r.Post("/", h.CreateTicketHandler)
			r.Get("/", h.ListTicketsHandler)
			r.Get("/{id}", h.GetTicketHandler)
			r.Patch("/{id}/status", h.UpdateTicketStatusHandler)
			r.Post("/{id}/messages", h.AddTicketMessageHandler)
			r.Get("/{id}/messages", h.ListTicketMessagesHandler)
		})
	})

	return r
}
