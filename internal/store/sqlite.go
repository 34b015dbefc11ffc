package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the local development backend. Its schema mirrors the
// Supabase tables; label_ids is kept as a JSON array in a text column.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS contract_summaries (
        id TEXT PRIMARY KEY,
        resume TEXT NOT NULL DEFAULT '',
        file_name TEXT,
        contract_id TEXT,
        created_at DATETIME
    );

    CREATE TABLE IF NOT EXISTS emails (
        id TEXT PRIMARY KEY,
        from_address TEXT,
        from_name TEXT,
        subject TEXT,
        snippet TEXT,
        body_text TEXT,
        label_ids TEXT NOT NULL DEFAULT '[]',
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        is_starred BOOLEAN NOT NULL DEFAULT FALSE,
        is_important BOOLEAN NOT NULL DEFAULT FALSE,
        has_attachments BOOLEAN NOT NULL DEFAULT FALSE,
        category TEXT,
        received_at DATETIME,
        updated_at DATETIME
    );

    CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails (received_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

const sqliteContractColumns = "id, resume, file_name, contract_id, created_at"

func (s *SQLiteStore) ListContractSummaries(ctx context.Context) ([]ContractSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteContractColumns+" FROM contract_summaries ORDER BY created_at IS NULL, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query contract summaries: %w", err)
	}
	defer rows.Close()

	var summaries []ContractSummary
	for rows.Next() {
		c, err := scanSQLiteContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract summary row: %w", err)
		}
		summaries = append(summaries, c)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) GetContractSummary(ctx context.Context, id string) (*ContractSummary, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sqliteContractColumns+" FROM contract_summaries WHERE id = ?", id)
	c, err := scanSQLiteContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contract summary %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contract summary %s: %w", id, err)
	}
	return &c, nil
}

func (s *SQLiteStore) UpsertContractSummary(ctx context.Context, c ContractSummary) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO contract_summaries (id, resume, file_name, contract_id, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            resume = excluded.resume,
            file_name = excluded.file_name,
            contract_id = excluded.contract_id,
            created_at = excluded.created_at`,
		c.ID, c.Resume, c.FileName, c.ContractID, nullTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert contract summary %s: %w", c.ID, err)
	}
	return nil
}

const sqliteEmailColumns = `id, from_address, from_name, subject, snippet, body_text, label_ids,
        is_read, is_starred, is_important, has_attachments, category, received_at, updated_at`

func (s *SQLiteStore) ListEmails(ctx context.Context) ([]Email, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteEmailColumns+" FROM emails ORDER BY received_at IS NULL, received_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		var (
			e          Email
			labelsJSON string
			received   sql.NullTime
			updated    sql.NullTime
		)
		err := rows.Scan(&e.ID, &e.FromAddress, &e.FromName, &e.Subject, &e.Snippet, &e.BodyText, &labelsJSON,
			&e.IsRead, &e.IsStarred, &e.IsImportant, &e.HasAttachments, &e.Category, &received, &updated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email row: %w", err)
		}
		if labelsJSON != "" {
			if err := json.Unmarshal([]byte(labelsJSON), &e.LabelIDs); err != nil {
				return nil, fmt.Errorf("failed to decode label_ids of email %s: %w", e.ID, err)
			}
		}
		e.ReceivedAt = timePtr(received)
		e.UpdatedAt = timePtr(updated)
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func (s *SQLiteStore) UpsertEmail(ctx context.Context, e Email) error {
	labels := e.LabelIDs
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to marshal label_ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO emails (`+sqliteEmailColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            from_address = excluded.from_address,
            from_name = excluded.from_name,
            subject = excluded.subject,
            snippet = excluded.snippet,
            body_text = excluded.body_text,
            label_ids = excluded.label_ids,
            is_read = excluded.is_read,
            is_starred = excluded.is_starred,
            is_important = excluded.is_important,
            has_attachments = excluded.has_attachments,
            category = excluded.category,
            received_at = excluded.received_at,
            updated_at = excluded.updated_at`,
		e.ID, e.FromAddress, e.FromName, e.Subject, e.Snippet, e.BodyText, string(labelsJSON),
		e.IsRead, e.IsStarred, e.IsImportant, e.HasAttachments, e.Category,
		nullTime(e.ReceivedAt), nullTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", e.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteContract(row rowScanner) (ContractSummary, error) {
	var (
		c       ContractSummary
		created sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Resume, &c.FileName, &c.ContractID, &created); err != nil {
		return ContractSummary{}, err
	}
	c.CreatedAt = timePtr(created)
	return c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
