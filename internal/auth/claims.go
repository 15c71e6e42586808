package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// Claims are the only supported JWT claims shape for this service.
// RegisteredClaims.ID is the token id (jti); it is unique per credential.
// Access and refresh credentials of one login share SessionID.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	SessionID   string    `json:"session_id"`
	TokenType   TokenType `json:"token_type"`
}

// TokenPair is what login and refresh hand back to callers.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
	SessionID string
}
