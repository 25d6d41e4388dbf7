package auth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"

	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

// JWKSVerifier validates asymmetric tokens against a remote JSON Web Key Set.
type JWKSVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*JWKSVerifier)(nil)

// NewJWKSVerifier fetches keys lazily from cfg.JWKSURL. ctx scopes the HTTP
// client used for key refreshes.
func NewJWKSVerifier(ctx context.Context, cfg Config) *JWKSVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	return newJWKSVerifier(keySet, cfg)
}

func newJWKSVerifier(keySet oidc.KeySet, cfg Config) *JWKSVerifier {
	oidcCfg := &oidc.Config{
		ClientID:             cfg.Audience,
		SkipClientIDCheck:    cfg.Audience == "",
		SkipIssuerCheck:      cfg.Issuer == "",
		SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
	}
	return &JWKSVerifier{verifier: oidc.NewVerifier(cfg.Issuer, keySet, oidcCfg)}
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token validation failed", err)
	}
	var extra struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token claims unreadable", err)
	}
	return Claims{
		UserID:    idToken.Subject,
		Email:     extra.Email,
		Role:      extra.Role,
		ExpiresAt: idToken.Expiry,
	}, nil
}
