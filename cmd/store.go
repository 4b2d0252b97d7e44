package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/competitorlens/lens-cli/internal/classify"
	"github.com/competitorlens/lens-cli/internal/resolve"
	"github.com/competitorlens/lens-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "lens.db"
		}
		s, err = store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("postgres database URL is required (LENS_STORE_DATABASE_URL)")
		}
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate")
	}
	return s, nil
}

func initResolver(s store.Store) (*resolve.Resolver, error) {
	if cfg.Classify.AliasFile == "" {
		return resolve.New(s), nil
	}
	aliases, err := resolve.LoadAliases(cfg.Classify.AliasFile)
	if err != nil {
		return nil, eris.Wrap(err, "load alias file")
	}
	return resolve.NewWithAliases(s, aliases), nil
}

func initClassifier() (*classify.Classifier, error) {
	if cfg.Classify.KeywordTable == "" {
		return classify.New(), nil
	}
	table, err := classify.LoadTable(cfg.Classify.KeywordTable)
	if err != nil {
		return nil, eris.Wrap(err, "load keyword table")
	}
	return classify.NewWithTable(table), nil
}
