package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/catdog/internal/bucket"
	"github.com/starford/catdog/internal/ledger"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/reconcile"
)

// stores groups the ledger and buckets shared by every command.
type stores struct {
	ledger    *ledger.Store
	buckets   *bucket.Materializer
	reconcile *reconcile.Reconciler
}

func openStores(cfg *Config, logger *slog.Logger) (*stores, error) {
	l := ledger.NewStore(cfg.Session.Ledger, logger)
	b, err := bucket.New(map[models.Label]string{
		models.LabelCat: cfg.Buckets.Cat,
		models.LabelDog: cfg.Buckets.Dog,
	}, bucket.WithRetries(cfg.Buckets.Retries), bucket.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &stores{
		ledger:    l,
		buckets:   b,
		reconcile: reconcile.New(l, b, cfg.Session.Input, logger),
	}, nil
}
