package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

// Service validates bearer tokens issued by the external identity provider.
type Service interface {
	ValidateToken(ctx context.Context, token string) (Claims, error)
}

// Verifier checks a raw token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

type service struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewService picks a verifier from cfg.
func NewService(ctx context.Context, cfg Config, logger *slog.Logger) (Service, error) {
	var (
		verifier Verifier
		err      error
	)
	switch {
	case strings.TrimSpace(cfg.JWKSURL) != "":
		verifier = NewJWKSVerifier(ctx, cfg)
	case strings.TrimSpace(cfg.Secret) != "":
		verifier, err = NewHMACVerifier(cfg)
	default:
		err = errors.New("auth: jwt secret or jwks url required")
	}
	if err != nil {
		return nil, err
	}
	return NewServiceWithVerifier(verifier, logger), nil
}

// NewServiceWithVerifier wraps an explicit verifier.
func NewServiceWithVerifier(verifier Verifier, logger *slog.Logger) Service {
	return &service{
		verifier: verifier,
		logger:   logger.With("component", "auth.service"),
	}
}

func (s *service) ValidateToken(ctx context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing", nil)
	}
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.Debug("token rejected", "error", err)
		return Claims{}, err
	}
	if claims.UserID == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing subject", nil)
	}
	return claims, nil
}

// DisabledVerifier rejects every token. It stands in when no key material is
// configured so anonymous endpoints keep working.
type DisabledVerifier struct{}

func (DisabledVerifier) Verify(context.Context, string) (Claims, error) {
	return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "authentication is not configured", nil)
}
