package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"hr-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Codec turns claim sets into signed bearer strings and back.
//
// Key versioning: the active key signs and its id goes into the kid
// header. Retired keys stay in the verify set until every token they
// signed has expired, so rotating the secret never logs anyone out.
type Codec struct {
	activeKID string
	keys      map[string][]byte
	issuer    string
	audience  string
	iatLeeway time.Duration
}

func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	kid := strings.TrimSpace(cfg.JWTKeyID)
	if kid == "" {
		return nil, errors.New("JWT_KEY_ID is required")
	}

	keys := make(map[string][]byte, len(cfg.JWTVerifyKeys)+1)
	for k, secret := range cfg.JWTVerifyKeys {
		k = strings.TrimSpace(k)
		if k == "" || secret == "" {
			return nil, errors.New("verify key set contains an empty kid or secret")
		}
		keys[k] = []byte(secret)
	}
	keys[kid] = []byte(cfg.JWTSecret)

	return &Codec{
		activeKID: kid,
		keys:      keys,
		issuer:    cfg.JWTIssuer,
		audience:  cfg.JWTAudience,
		iatLeeway: cfg.Leeway,
	}, nil
}

/* ===================== ENCODE ===================== */

// Encode signs claims with the active key. Issuer and audience are filled
// from configuration when the caller left them empty.
func (c *Codec) Encode(claims Claims) (string, error) {
	if err := checkRequired(claims); err != nil {
		return "", err
	}
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	if len(claims.Audience) == 0 {
		claims.Audience = audienceOrNil(c.audience)
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = c.activeKID
	s, err := t.SignedString(c.keys[c.activeKID])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return s, nil
}

/* ===================== DECODE ===================== */

// Decode verifies the signature and shape of token and returns its claims.
// It never consults the revocation store.
//
// Expiry is reported ahead of signature problems: a credential past its
// exp is ErrExpired whatever else is wrong with it.
func (c *Codec) Decode(token string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, &claims, c.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if expired(claims, now) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if expired(claims, now) {
		return Claims{}, ErrExpired
	}
	if err := c.checkShape(claims, now); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	key, ok := c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}

func (c *Codec) checkShape(claims Claims, now time.Time) error {
	if err := checkRequired(claims); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if claims.IssuedAt.Time.After(now.Add(c.iatLeeway)) {
		return fmt.Errorf("%w: iat in the future", ErrMalformed)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return fmt.Errorf("%w: issuer mismatch", ErrMalformed)
	}
	if c.audience != "" && !slices.Contains(claims.Audience, c.audience) {
		return fmt.Errorf("%w: audience mismatch", ErrMalformed)
	}
	return nil
}

func checkRequired(claims Claims) error {
	switch {
	case claims.UserID == "":
		return fmt.Errorf("%w: user_id", ErrEncoding)
	case claims.SessionID == "":
		return fmt.Errorf("%w: session_id", ErrEncoding)
	case claims.ID == "":
		return fmt.Errorf("%w: jti", ErrEncoding)
	case !claims.TokenType.Valid():
		return fmt.Errorf("%w: token_type", ErrEncoding)
	case claims.IssuedAt == nil || claims.ExpiresAt == nil:
		return fmt.Errorf("%w: iat/exp", ErrEncoding)
	case !claims.ExpiresAt.Time.After(claims.IssuedAt.Time):
		return fmt.Errorf("%w: exp must be after iat", ErrEncoding)
	}
	// Role is required ONLY for access tokens
	if claims.TokenType == TokenTypeAccess && claims.Role == "" {
		return fmt.Errorf("%w: role", ErrEncoding)
	}
	return nil
}

func expired(claims Claims, now time.Time) bool {
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

func jwtTime(t time.Time) *jwt.NumericDate {
	return jwt.NewNumericDate(t)
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
