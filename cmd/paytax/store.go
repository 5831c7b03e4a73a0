package main

import (
	"github.com/rgehrsitz/paytax/internal/cache"
	"github.com/rgehrsitz/paytax/internal/config"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/repository"
	"github.com/spf13/cobra"
)

// store bundles the persistence dependencies opened from PAYTAX_* settings
type store struct {
	cfg   *domain.Config
	repo  domain.Repository
	cache domain.Cache
}

// openStore loads the environment configuration and opens the repository and
// cache. A non-empty dbPath selects that SQLite file instead of the
// configured database.
func openStore(dbPath string) (*store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Repository.Driver = "sqlite"
		cfg.Repository.SQLitePath = dbPath
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &store{cfg: cfg, repo: repo, cache: c}, nil
}

func (s *store) Close() error {
	cacheErr := s.cache.Close()
	if err := s.repo.Close(); err != nil {
		return err
	}
	return cacheErr
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "SQLite database file (default: PAYTAX_DB_* settings)")
	cmd.Flags().String("tenant", "", "Tenant ID")
}
