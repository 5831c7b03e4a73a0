package repository

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/rgehrsitz/paytax/internal/domain"
)

var postgresSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// postgresDSN renders cfg as a postgres:// URL so credentials containing
// spaces or quotes survive intact.
func postgresDSN(cfg domain.RepositoryConfig) (string, error) {
	sslMode := cfg.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	if !postgresSSLModes[sslMode] {
		return "", fmt.Errorf("%w: unsupported postgres sslmode %q", ErrInvalidInput, sslMode)
	}

	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}
	dbName := cfg.PostgresDB
	if dbName == "" {
		dbName = "paytax"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + strconv.Itoa(port),
		Path:     "/" + dbName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if cfg.PostgresUser != "" {
		u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
	}
	return u.String(), nil
}

// openPostgres connects to the shared multi-tenant database.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	dsn, err := postgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open %s@%s: %w", cfg.PostgresDB, cfg.PostgresHost, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping %s: %w", cfg.PostgresHost, err)
	}
	return db, nil
}
