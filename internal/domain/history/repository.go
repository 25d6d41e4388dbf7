package history

import "context"

// Repository persists history entries. List returns the entries whose owner
// equals owner exactly, newest first; an empty owner selects anonymous entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, owner string) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, bool, error)
}

// Archiver keeps an external copy of saved entries.
type Archiver interface {
	Archive(ctx context.Context, entry Entry) error
}
