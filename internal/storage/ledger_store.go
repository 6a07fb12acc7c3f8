package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sheikh-saqib/banking-ledger-core/internal/config"
	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/sheikh-saqib/banking-ledger-core/internal/storage/memory"
	"github.com/sheikh-saqib/banking-ledger-core/internal/storage/postgres"
)

// Open builds the LedgerStore selected by cfg.StoreBackend, applies the
// schema where there is one, and registers the configured account types.
// The returned close function releases the backend's resources.
func Open(ctx context.Context, cfg *config.Config) (interfaces.LedgerStore, func() error, error) {
	var store interfaces.LedgerStore
	closeFn := func() error { return nil }

	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = memory.NewMemoryLedgerStore()
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := postgres.NewPostgresLedgerStore(db)
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		store, closeFn = pg, db.Close
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if err := SeedAccountTypes(ctx, store, cfg.AccountTypes); err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

// SeedAccountTypes registers each type, skipping ones already present.
func SeedAccountTypes(ctx context.Context, store interfaces.LedgerStore, types []models.AccountType) error {
	for _, t := range types {
		err := store.CreateAccountType(ctx, t)
		if err != nil && !errors.Is(err, models.ErrDuplicateAccount) {
			return fmt.Errorf("seed account type %q: %w", t.Name, err)
		}
	}
	return nil
}
