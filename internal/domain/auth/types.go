package auth

import "time"

// Config selects how bearer tokens are verified. When JWKSURL is set tokens
// are checked against the remote key set; otherwise Secret verifies HS256.
type Config struct {
	Secret   string
	JWKSURL  string
	Issuer   string
	Audience string
}

// Claims are extracted from a verified access token.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}
