package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/iluma/rivalviews-cli/internal/config"
	"github.com/iluma/rivalviews-cli/internal/matching"
	"github.com/iluma/rivalviews-cli/internal/store"
)

// openStore opens the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newEngine builds the matching engine, applying the rule override file when
// one is configured.
func newEngine() (*matching.Engine, error) {
	matchCfg := cfg.Matching
	if matchCfg.DefaultLimit == 0 {
		matchCfg = config.DefaultMatchingConfig()
	}

	eng := matching.New(matchCfg)

	if cfg.Rules.Path != "" {
		overrides, err := matching.LoadOverrides(cfg.Rules.Path)
		if err != nil {
			return nil, err
		}
		eng.ApplyOverrides(overrides)
		zap.L().Info("applied service rule overrides", zap.String("path", cfg.Rules.Path))
	}

	return eng, nil
}
