package share

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/neurabot/neurabot-api/internal/domain/auth"
	"github.com/neurabot/neurabot-api/internal/domain/history"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
	"github.com/neurabot/neurabot-api/pkg/util"
)

// HistoryReader loads the entry a token points to.
type HistoryReader interface {
	Get(ctx context.Context, id string) (history.Entry, error)
}

// Service issues and resolves share links.
type Service interface {
	Create(ctx context.Context, caller auth.Claims, req CreateRequest) (CreateResponse, error)
	// Resolve counts a view and returns the shared content.
	Resolve(ctx context.Context, token string) (Content, error)
	Status() Status
}

type service struct {
	cfg      Config
	store    Store
	history  HistoryReader
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string
}

// NewService constructs the share service.
func NewService(cfg Config, store Store, reader HistoryReader, logger *slog.Logger) Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &service{
		cfg:      cfg,
		store:    store,
		history:  reader,
		logger:   logger.With("component", "share.service"),
		now:      util.NowUTC,
		newToken: shortuuid.New,
	}
}

func (s *service) Create(ctx context.Context, caller auth.Claims, req CreateRequest) (CreateResponse, error) {
	if caller.UserID == "" {
		return CreateResponse{}, apperrors.Wrap(apperrors.CodeUnauthorized, "sign in required", nil)
	}
	historyID := strings.TrimSpace(req.HistoryID)
	if historyID == "" {
		return CreateResponse{}, apperrors.Wrap(apperrors.CodeValidation, "historyId required", nil)
	}
	if req.MaxViews != nil && *req.MaxViews <= 0 {
		return CreateResponse{}, apperrors.Wrap(apperrors.CodeValidation, "maxViews must be positive", nil)
	}

	entry, err := s.history.Get(ctx, historyID)
	if err != nil {
		return CreateResponse{}, err
	}
	if entry.UserID != caller.UserID {
		return CreateResponse{}, apperrors.Wrap(apperrors.CodeForbidden, "history entry belongs to another user", nil)
	}

	now := s.now()
	token := Token{
		Token:     s.newToken(),
		HistoryID: entry.ID,
		CreatedBy: caller.UserID,
		ExpiresAt: now.Add(s.cfg.TTL),
		MaxViews:  req.MaxViews,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, token); err != nil {
		return CreateResponse{}, apperrors.Wrap(apperrors.CodeStorage, "failed to create share token", err)
	}
	s.logger.Info("share token created", "history_id", entry.ID, "expires_at", token.ExpiresAt)
	return CreateResponse{ShareToken: token.Token, ExpiresAt: token.ExpiresAt}, nil
}

func (s *service) Resolve(ctx context.Context, raw string) (Content, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Content{}, apperrors.Wrap(apperrors.CodeNotFound, "share link not found", nil)
	}
	token, found, err := s.store.Get(ctx, raw)
	if err != nil {
		return Content{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load share token", err)
	}
	if !found {
		return Content{}, apperrors.Wrap(apperrors.CodeNotFound, "share link not found", nil)
	}
	now := s.now()
	if err := token.CheckView(now); err != nil {
		return Content{}, storeError(err)
	}

	token, err = s.store.IncrementView(ctx, raw, now)
	if err != nil {
		return Content{}, storeError(err)
	}

	entry, err := s.history.Get(ctx, token.HistoryID)
	if err != nil {
		return Content{}, err
	}
	return Content{
		HistoryID: entry.ID,
		Text:      entry.Text,
		Summary:   entry.Summary,
		Meta:      entry.Meta,
		CreatedAt: entry.CreatedAt,
		SharedAt:  token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
		ViewCount: token.ViewCount,
	}, nil
}

func (s *service) Status() Status {
	kind := s.store.Kind()
	return Status{Store: kind, Durable: kind != "memory"}
}

// storeError maps refusals from CheckView or the conditional increment. The
// increment re-checks because the token may change after the read.
func storeError(err error) error {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, "share link not found", err)
	case errors.Is(err, ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeExpired, "share link expired", err)
	case errors.Is(err, ErrLimitReached):
		return apperrors.Wrap(apperrors.CodeLimitReached, "share link view limit reached", err)
	default:
		return apperrors.Wrap(apperrors.CodeStorage, "failed to record share view", err)
	}
}
