package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// postgres is the database-backed Store, for deployments where entries
// must survive restarts. It expects the schema installed by Migrate.
type postgres struct {
	db *sql.DB
}

// NewPostgres creates a registry store backed by the given database.
func NewPostgres(db *sql.DB) Store {
	return &postgres{db: db}
}

func (p *postgres) Register(ctx context.Context, entry Entry) error {
	q := `INSERT INTO download_entries
		(id, path, filename, mime_type, size_bytes, operation, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := p.db.ExecContext(ctx, q,
		entry.ID, entry.Path, entry.Filename, entry.MimeType,
		entry.SizeBytes, entry.Operation, entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("register entry: %w", err)
	}
	return nil
}

func (p *postgres) Resolve(ctx context.Context, id uuid.UUID) (Entry, error) {
	q := `SELECT id, path, filename, mime_type, size_bytes, operation, created_at, expires_at
		FROM download_entries WHERE id = $1`

	entry, err := scanEntry(p.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("resolve entry: %w", err)
	}

	if entry.ExpiredAt(time.Now()) {
		return Entry{}, ErrExpired
	}
	return entry, nil
}

func (p *postgres) Expire(ctx context.Context, id uuid.UUID) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM download_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("expire entry: %w", err)
	}
	return nil
}

func (p *postgres) Expired(ctx context.Context, now time.Time) ([]Entry, error) {
	q := `SELECT id, path, filename, mime_type, size_bytes, operation, created_at, expires_at
		FROM download_entries WHERE expires_at <= $1`

	return p.queryEntries(ctx, q, now)
}

func (p *postgres) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, path, filename, mime_type, size_bytes, operation, created_at, expires_at
		FROM download_entries ORDER BY created_at DESC LIMIT $1`

	return p.queryEntries(ctx, q, limit)
}

func (p *postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM download_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

func (p *postgres) queryEntries(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var entry Entry
	err := row.Scan(
		&entry.ID, &entry.Path, &entry.Filename, &entry.MimeType,
		&entry.SizeBytes, &entry.Operation, &entry.CreatedAt, &entry.ExpiresAt,
	)
	return entry, err
}
