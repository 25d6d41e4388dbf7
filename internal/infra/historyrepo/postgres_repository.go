package historyrepo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neurabot/neurabot-api/internal/domain/history"
)

// PostgresRepository implements history.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ history.Repository = (*PostgresRepository)(nil)

// Insert implements history.Repository.
func (r *PostgresRepository) Insert(ctx context.Context, entry history.Entry) error {
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO histories (id, user_id, original_text, summary_result, metadata, created_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6)
	`, entry.ID, entry.UserID, entry.Text, entry.Summary, meta, entry.CreatedAt)
	return err
}

// List implements history.Repository.
func (r *PostgresRepository) List(ctx context.Context, owner string) ([]history.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(user_id, ''), original_text, COALESCE(summary_result, ''), metadata, created_at
		FROM histories
		WHERE COALESCE(user_id, '') = $1
		ORDER BY created_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Get implements history.Repository.
func (r *PostgresRepository) Get(ctx context.Context, id string) (history.Entry, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(user_id, ''), original_text, COALESCE(summary_result, ''), metadata, created_at
		FROM histories
		WHERE id = $1
	`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return history.Entry{}, false, nil
		}
		return history.Entry{}, false, err
	}
	return entry, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var (
		entry history.Entry
		meta  []byte
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Text, &entry.Summary, &meta, &entry.CreatedAt); err != nil {
		return history.Entry{}, err
	}
	entry.Meta = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &entry.Meta); err != nil {
			return history.Entry{}, err
		}
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return entry, nil
}
