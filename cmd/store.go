package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tapline/happyhour-cli/internal/consensus"
	"github.com/tapline/happyhour-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "happyhour.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEngine builds the consensus engine from the configured weights file,
// falling back to built-in defaults when none is set.
func initEngine() (*consensus.Engine, error) {
	if cfg.Consensus.WeightsFile == "" {
		return consensus.New(consensus.DefaultConfig())
	}
	ccfg, err := consensus.LoadConfig(cfg.Consensus.WeightsFile)
	if err != nil {
		return nil, err
	}
	return consensus.New(ccfg)
}
