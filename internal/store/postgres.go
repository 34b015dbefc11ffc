package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads the Supabase tables. The schema is owned by Supabase;
// nothing here creates or migrates tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool for dsn and checks connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = 8
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const pgContractColumns = "id::text, COALESCE(resume, ''), file_name, contract_id, created_at"

func (s *PostgresStore) ListContractSummaries(ctx context.Context) ([]ContractSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgContractColumns+` FROM contract_summaries ORDER BY created_at DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("list contract summaries: %w", err)
	}
	defer rows.Close()

	var summaries []ContractSummary
	for rows.Next() {
		c, err := scanPgContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract summary: %w", err)
		}
		summaries = append(summaries, c)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) GetContractSummary(ctx context.Context, id string) (*ContractSummary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgContractColumns+` FROM contract_summaries WHERE id::text = $1`, id)
	c, err := scanPgContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get contract summary %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get contract summary %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresStore) ListEmails(ctx context.Context) ([]Email, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, from_address, from_name, subject, snippet, body_text,
		       COALESCE(label_ids, '{}'),
		       COALESCE(is_read, false), COALESCE(is_starred, false),
		       COALESCE(is_important, false), COALESCE(has_attachments, false),
		       category, received_at, updated_at
		FROM emails
		ORDER BY received_at DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		var e Email
		err := rows.Scan(&e.ID, &e.FromAddress, &e.FromName, &e.Subject, &e.Snippet, &e.BodyText,
			&e.LabelIDs, &e.IsRead, &e.IsStarred, &e.IsImportant, &e.HasAttachments,
			&e.Category, &e.ReceivedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func scanPgContract(row pgx.Row) (ContractSummary, error) {
	var c ContractSummary
	err := row.Scan(&c.ID, &c.Resume, &c.FileName, &c.ContractID, &c.CreatedAt)
	return c, err
}
