package share

import (
	"context"
	"time"
)

// Store persists share tokens.
type Store interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (Token, bool, error)
	// IncrementView atomically bumps the view count when the token is active,
	// unexpired at now, and below its limit, returning the updated token.
	IncrementView(ctx context.Context, token string, now time.Time) (Token, error)
	// Kind names the backend, e.g. "memory", "postgres", "valkey".
	Kind() string
}
