// Package store reads the dashboard's contract summaries and emails from
// Postgres (Supabase) or a local SQLite file.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the read side used by the dashboard. Lists are ordered newest
// first; rows without a date come last.
type Store interface {
	ListContractSummaries(ctx context.Context) ([]ContractSummary, error)
	GetContractSummary(ctx context.Context, id string) (*ContractSummary, error)
	ListEmails(ctx context.Context) ([]Email, error)
	Ping(ctx context.Context) error
	Close() error
}

// Seeder writes rows. Only the local development tooling uses it; in
// production the tables are filled by external workflows.
type Seeder interface {
	UpsertContractSummary(ctx context.Context, c ContractSummary) error
	UpsertEmail(ctx context.Context, e Email) error
}

// Open picks a backend from the DSN: postgres:// and postgresql:// URLs use
// pgx, anything else is a SQLite file path. A positive cacheTTL wraps the
// backend in a read cache.
func Open(ctx context.Context, dsn string, cacheTTL time.Duration) (Store, error) {
	var (
		backend Store
		err     error
	)
	if isPostgresDSN(dsn) {
		backend, err = NewPostgresStore(ctx, dsn)
	} else {
		backend, err = NewSQLiteStore(dsn)
	}
	if err != nil {
		return nil, err
	}

	if cacheTTL <= 0 {
		return backend, nil
	}
	cached, err := NewCachedStore(backend, cacheTTL)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("create read cache: %w", err)
	}
	return cached, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
