package historyrepo

import (
	"context"
	"maps"
	"sync"

	"github.com/neurabot/neurabot-api/internal/domain/history"
)

// MemoryRepository keeps entries in process memory, newest first. Entries are
// lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []history.Entry
	byID    map[string]int
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]int)}
}

var _ history.Repository = (*MemoryRepository)(nil)

// Insert stores entry. The slice is kept oldest first so byID indexes stay
// stable; List walks it backwards.
func (r *MemoryRepository) Insert(_ context.Context, entry history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, cloneEntry(entry))
	r.byID[entry.ID] = len(r.entries) - 1
	return nil
}

// List implements history.Repository.
func (r *MemoryRepository) List(_ context.Context, owner string) ([]history.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]history.Entry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.UserID != owner {
			continue
		}
		out = append(out, cloneEntry(entry))
	}
	return out, nil
}

// Get implements history.Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (history.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return history.Entry{}, false, nil
	}
	return cloneEntry(r.entries[idx]), true, nil
}

func cloneEntry(entry history.Entry) history.Entry {
	entry.Meta = maps.Clone(entry.Meta)
	return entry
}
