package share

import (
	"errors"
	"time"
)

// DefaultTTL is how long a share link stays valid unless configured otherwise.
const DefaultTTL = 30 * 24 * time.Hour

// Token grants public read access to one history entry. Tokens are never
// deleted; they stop resolving once expired, exhausted, or deactivated.
type Token struct {
	Token     string    `json:"token"`
	HistoryID string    `json:"historyId"`
	CreatedBy string    `json:"createdBy"`
	ExpiresAt time.Time `json:"expiresAt"`
	MaxViews  *int      `json:"maxViews,omitempty"`
	ViewCount int       `json:"viewCount"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether now is past the expiry.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Exhausted reports whether the view limit has been reached.
func (t Token) Exhausted() bool {
	return t.MaxViews != nil && t.ViewCount >= *t.MaxViews
}

// CheckView reports why a view at now would be refused, or nil.
func (t Token) CheckView(now time.Time) error {
	switch {
	case !t.IsActive:
		return ErrTokenNotFound
	case t.Expired(now):
		return ErrTokenExpired
	case t.Exhausted():
		return ErrLimitReached
	}
	return nil
}

// Config configures token issuance.
type Config struct {
	TTL time.Duration
}

// CreateRequest asks for a share link to a history entry.
type CreateRequest struct {
	HistoryID string `json:"historyId"`
	MaxViews  *int   `json:"maxViews,omitempty"`
}

// CreateResponse returns the issued token.
type CreateResponse struct {
	ShareToken string    `json:"shareToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Content is what a resolved share link exposes.
type Content struct {
	HistoryID string         `json:"historyId"`
	Text      string         `json:"text"`
	Summary   string         `json:"summary,omitempty"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"createdAt"`
	SharedAt  time.Time      `json:"sharedAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
	ViewCount int            `json:"viewCount"`
}

// Status describes the configured token store.
type Status struct {
	Store   string `json:"store"`
	Durable bool   `json:"durable"`
}

// Store errors returned by Store.IncrementView when the conditional update
// is refused.
var (
	ErrTokenNotFound = errors.New("share token not found")
	ErrTokenExpired  = errors.New("share token expired")
	ErrLimitReached  = errors.New("share token view limit reached")
)
