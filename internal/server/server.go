// Package server exposes the ledger over HTTP. Handlers only decode
// requests, call the ledger or the report layer, and map the outcome to a
// status code.
package server

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-core/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/sheikh-saqib/banking-ledger-core/internal/report"
)

// AccountRegistrar opens new accounts. The ledger never creates accounts
// itself.
type AccountRegistrar interface {
	CreateAccount(ctx context.Context, a models.Account) error
}

// Server holds the HTTP layer's dependencies. Router builds its handler.
type Server struct {
	ledger   *ledger.Ledger
	reports  *report.Reporter
	accounts AccountRegistrar
	redis    *redis.Client
	logger   *slog.Logger

	minAccountNo int64
}

// Option configures a Server.
type Option func(*Server)

// WithIdempotency puts the mutation routes behind the redis idempotency
// middleware.
func WithIdempotency(rdb *redis.Client) Option {
	return func(s *Server) { s.redis = rdb }
}

// WithLogger replaces slog.Default for request and error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAccountNumberStart sets the lowest account number registration
// accepts. The default is models.DefaultAccountNumberStart.
func WithAccountNumberStart(n int64) Option {
	return func(s *Server) { s.minAccountNo = n }
}

// NewServer builds the HTTP layer. store serves reports and account
// registration.
func NewServer(l *ledger.Ledger, store interfaces.LedgerStore, opts ...Option) *Server {
	s := &Server{
		ledger:   l,
		reports:  report.NewReporter(store),
		accounts: store,
		logger:   slog.Default(),

		minAccountNo: models.DefaultAccountNumberStart,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
