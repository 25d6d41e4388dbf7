package sharestore

import (
	"context"
	"sync"
	"time"

	"github.com/neurabot/neurabot-api/internal/domain/share"
)

// MemoryStore keeps share tokens in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]share.Token
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]share.Token)}
}

var _ share.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, token share.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = copyToken(token)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (share.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return share.Token{}, false, nil
	}
	return copyToken(t), true, nil
}

func (s *MemoryStore) IncrementView(_ context.Context, token string, now time.Time) (share.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return share.Token{}, share.ErrTokenNotFound
	}
	if err := t.CheckView(now); err != nil {
		return share.Token{}, err
	}
	t.ViewCount++
	s.tokens[token] = t
	return copyToken(t), nil
}

func (s *MemoryStore) Kind() string { return "memory" }

func copyToken(t share.Token) share.Token {
	if t.MaxViews != nil {
		v := *t.MaxViews
		t.MaxViews = &v
	}
	return t
}
