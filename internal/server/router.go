package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sheikh-saqib/banking-ledger-core/internal/server/middleware"
)

// Router returns the full handler chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", s.health)

	r.Route("/accounts", func(r chi.Router) {
		r.With(s.idempotent).Post("/", s.createAccount)

		r.Route("/{accountNo}", func(r chi.Router) {
			r.Get("/", s.getAccount)
			r.Get("/balance", s.getBalance)
			r.Get("/transactions", s.listTransactions)
			r.Get("/statement", s.statement)

			r.Group(func(r chi.Router) {
				r.Use(s.idempotent)
				r.Post("/deposits", s.deposit)
				r.Post("/withdrawals", s.withdraw)
				r.Post("/transfers", s.transfer)
			})
		})
	})

	return r
}

// idempotent is a no-op unless a redis client was configured.
func (s *Server) idempotent(next http.Handler) http.Handler {
	if s.redis == nil {
		return next
	}
	return middleware.Idempotency(s.redis, s.logger)(next)
}
