package history

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
	"github.com/neurabot/neurabot-api/pkg/util"
)

// Service manages saved summaries.
type Service interface {
	// Save stores a new entry. owner may be empty for anonymous saves.
	Save(ctx context.Context, owner string, req SaveRequest) (Entry, error)
	// List returns the owner's entries newest first. An empty owner lists
	// anonymous entries only.
	List(ctx context.Context, owner string) ([]Entry, error)
	// Get loads an entry without access checks.
	Get(ctx context.Context, id string) (Entry, error)
	// GetFor loads an entry on behalf of caller. Owned entries are only
	// visible to their owner; others see not_found.
	GetFor(ctx context.Context, caller, id string) (Entry, error)
}

const archiveTimeout = 10 * time.Second

type service struct {
	repo     Repository
	archiver Archiver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewService constructs the history service. archiver may be nil.
func NewService(repo Repository, archiver Archiver, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		archiver: archiver,
		logger:   logger.With("component", "history.service"),
		now:      util.NowUTC,
		newID:    uuid.NewString,
	}
}

func (s *service) Save(ctx context.Context, owner string, req SaveRequest) (Entry, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Entry{}, apperrors.Wrap(apperrors.CodeValidation, "text cannot be empty", nil)
	}
	meta := req.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	entry := Entry{
		ID:        s.newID(),
		UserID:    strings.TrimSpace(owner),
		Text:      text,
		Summary:   strings.TrimSpace(req.Summary),
		Meta:      meta,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStorage, "failed to save history", err)
	}
	s.logger.Info("history saved", "id", entry.ID, "owned", entry.UserID != "")
	s.archive(ctx, entry)
	return entry, nil
}

func (s *service) archive(ctx context.Context, entry Entry) {
	if s.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.archiver.Archive(ctx, entry); err != nil {
		s.logger.Warn("history archive failed", "id", entry.ID, "error", err)
	}
}

func (s *service) List(ctx context.Context, owner string) ([]Entry, error) {
	entries, err := s.repo.List(ctx, strings.TrimSpace(owner))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to list history", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (s *service) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, apperrors.Wrap(apperrors.CodeValidation, "history id required", nil)
	}
	entry, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load history", err)
	}
	if !found {
		return Entry{}, apperrors.Wrap(apperrors.CodeNotFound, "history entry not found", nil)
	}
	return entry, nil
}

func (s *service) GetFor(ctx context.Context, caller, id string) (Entry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.UserID != "" && entry.UserID != strings.TrimSpace(caller) {
		s.logger.Warn("history access denied", "id", entry.ID)
		return Entry{}, apperrors.Wrap(apperrors.CodeNotFound, "history entry not found", nil)
	}
	return entry, nil
}
