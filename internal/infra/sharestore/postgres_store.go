package sharestore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neurabot/neurabot-api/internal/domain/share"
)

// PostgresStore persists share tokens in the share_tokens table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ share.Store = (*PostgresStore)(nil)

const tokenColumns = `token, history_id, created_by, expires_at, max_views, view_count, is_active, created_at`

func (s *PostgresStore) Create(ctx context.Context, token share.Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO share_tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, token.Token, token.HistoryID, token.CreatedBy, token.ExpiresAt, token.MaxViews, token.ViewCount, token.IsActive, token.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, token string) (share.Token, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM share_tokens WHERE token = $1`, token)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return share.Token{}, false, nil
		}
		return share.Token{}, false, err
	}
	return t, true, nil
}

// IncrementView relies on a single conditional UPDATE so concurrent viewers
// cannot push the count past max_views.
func (s *PostgresStore) IncrementView(ctx context.Context, token string, now time.Time) (share.Token, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE share_tokens
		SET view_count = view_count + 1
		WHERE token = $1
		  AND is_active
		  AND expires_at >= $2
		  AND (max_views IS NULL OR view_count < max_views)
		RETURNING `+tokenColumns, token, now)
	t, err := scanToken(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return share.Token{}, err
	}

	current, found, getErr := s.Get(ctx, token)
	if getErr != nil {
		return share.Token{}, getErr
	}
	if !found {
		return share.Token{}, share.ErrTokenNotFound
	}
	if reason := current.CheckView(now); reason != nil {
		return share.Token{}, reason
	}
	return share.Token{}, share.ErrLimitReached
}

func (s *PostgresStore) Kind() string { return "postgres" }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (share.Token, error) {
	var t share.Token
	if err := row.Scan(&t.Token, &t.HistoryID, &t.CreatedBy, &t.ExpiresAt, &t.MaxViews, &t.ViewCount, &t.IsActive, &t.CreatedAt); err != nil {
		return share.Token{}, err
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
