/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clients/*       Client and account management
  /api/transactions/*  Deposits, withdrawals, transfers
  /api/loans/*         Loan lifecycle and payments
  /api/amortization    Stateless schedule calculator
  /api/reports/*       Period summaries and balances
  /api/backup/*        Export and restore

TENANCY:
  Handlers read the organization from the X-Organization-ID header;
  CORS must allow it through.

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
			r.Get("/{id}/balance", h.GetClientBalance)
			r.Post("/{id}/accounts", h.OpenAccount)
			r.Get("/{id}/transactions", h.GetClientTransactions)
			r.Get("/{id}/loans", h.GetClientLoans)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/deposits", h.Deposit)
			r.Post("/withdrawals", h.Withdraw)
			r.Post("/transfers", h.Transfer)
			r.Get("/{id}", h.GetTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Loan routes
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.CreateLoan)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/approve", h.ApproveLoan)
			r.Post("/{id}/reject", h.RejectLoan)
			r.Post("/{id}/default", h.DefaultLoan)
			r.Post("/{id}/payments", h.PostLoanPayment)
		})
		r.Post("/amortization", h.Amortization)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", h.ReportSummary)
			r.Get("/balances", h.ReportBalances)
		})

		// Backup routes
		r.Route("/backup", func(r chi.Router) {
			r.Post("/export", h.ExportBackup)
			r.Post("/restore", h.RestoreBackup)
		})
	})

	return r
}
