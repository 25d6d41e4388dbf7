package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

type fakeRepo struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (r *fakeRepo) Insert(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append([]Entry{entry}, r.entries...)
	return nil
}

func (r *fakeRepo) List(_ context.Context, owner string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.UserID == owner {
			out = append(out, e)
		}
	}
	return out, r.err
}

func (r *fakeRepo) Get(_ context.Context, id string) (Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, true, nil
		}
	}
	return Entry{}, false, r.err
}

type fakeArchiver struct {
	archived []string
	err      error
}

func (a *fakeArchiver) Archive(_ context.Context, entry Entry) error {
	a.archived = append(a.archived, entry.ID)
	return a.err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil, newTestLogger())

	before := time.Now().UTC()
	entry, err := svc.Save(context.Background(), "", SaveRequest{Text: " Pasien demam ", Meta: map[string]any{"mode": "patologi"}})
	require.NoError(t, err)

	parsed, err := uuid.Parse(entry.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(4), parsed.Version())
	require.Equal(t, "Pasien demam", entry.Text)
	require.Empty(t, entry.UserID)
	require.Equal(t, "patologi", entry.Meta["mode"])
	require.Equal(t, time.UTC, entry.CreatedAt.Location())
	require.False(t, entry.CreatedAt.Before(before))
}

func TestSaveRejectsEmptyText(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil, newTestLogger())

	_, err := svc.Save(context.Background(), "", SaveRequest{Text: "  \n"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	require.Empty(t, repo.entries)
}

func TestListNewestFirst(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil, newTestLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.Save(context.Background(), "", SaveRequest{Text: fmt.Sprintf("catatan %d", i)})
		require.NoError(t, err)
	}
	entries, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "catatan 2", entries[0].Text)
	require.Equal(t, "catatan 0", entries[2].Text)
	require.NotNil(t, entries[0].Meta)
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, newTestLogger())
	entries, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestGet(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, newTestLogger())
	saved, err := svc.Save(context.Background(), "user-1", SaveRequest{Text: "teks", Summary: "ringkasan"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	require.Equal(t, saved, got)

	_, err = svc.Get(context.Background(), uuid.NewString())
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	_, err = svc.Get(context.Background(), " ")
	require.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestGetForHidesOtherOwners(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, newTestLogger())
	owned, err := svc.Save(context.Background(), "user-1", SaveRequest{Text: "Pasien rahasia"})
	require.NoError(t, err)
	anonymous, err := svc.Save(context.Background(), "", SaveRequest{Text: "Catatan umum"})
	require.NoError(t, err)

	got, err := svc.GetFor(context.Background(), "user-1", owned.ID)
	require.NoError(t, err)
	require.Equal(t, owned, got)

	_, err = svc.GetFor(context.Background(), "", owned.ID)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	_, err = svc.GetFor(context.Background(), "user-2", owned.ID)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	got, err = svc.GetFor(context.Background(), "user-2", anonymous.ID)
	require.NoError(t, err)
	require.Equal(t, anonymous, got)
}

func TestListAnonymousExcludesOwned(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, newTestLogger())
	_, err := svc.Save(context.Background(), "user-1", SaveRequest{Text: "milik user-1"})
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), "", SaveRequest{Text: "anonim"})
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "anonim", entries[0].Text)
}

func TestSaveArchivesBestEffort(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("bucket unavailable")}
	svc := NewService(&fakeRepo{}, archiver, newTestLogger())

	entry, err := svc.Save(context.Background(), "", SaveRequest{Text: "teks"})
	require.NoError(t, err)
	require.Equal(t, []string{entry.ID}, archiver.archived)
}

func TestSaveStorageFailure(t *testing.T) {
	svc := NewService(&fakeRepo{err: errors.New("db down")}, nil, newTestLogger())
	_, err := svc.Save(context.Background(), "", SaveRequest{Text: "teks"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
}
