package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hr-platform/internal/audit"
	"hr-platform/internal/config"
	"hr-platform/internal/directory"

	"github.com/google/uuid"
)

// Authenticator is the upstream identity check consulted on login.
type Authenticator interface {
	Authenticate(ctx context.Context, subjectID, secret string) (directory.Subject, error)
}

// Issuer mints access/refresh pairs. Issuance is stateless: a session
// exists only through the validity of its refresh token.
type Issuer struct {
	codec      *Codec
	authn      Authenticator
	accessTTL  time.Duration
	refreshTTL time.Duration
	opts       options
}

func NewIssuer(codec *Codec, authn Authenticator, cfg config.AuthConfig, opts ...Option) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, errors.New("auth: refresh ttl must exceed a positive access ttl")
	}
	return &Issuer{
		codec:      codec,
		authn:      authn,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		opts:       buildOptions(opts),
	}, nil
}

func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

/* ===================== LOGIN ===================== */

// Login checks the secret with the authenticator and issues a new session.
// Every rejection is ErrInvalidCredentials so callers cannot probe which
// subject ids exist.
func (i *Issuer) Login(ctx context.Context, subjectID, secret, ip string) (TokenPair, error) {
	if i.authn == nil {
		return TokenPair{}, errors.New("auth: authenticator not configured")
	}
	subj, err := i.authn.Authenticate(ctx, subjectID, secret)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			i.opts.record(ctx, audit.Event{
				Type:      audit.EventLoginFailed,
				SubjectID: subjectID,
				IPAddress: ip,
			})
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("auth: identity check: %w", err)
	}
	return i.Issue(subj.ID, subj.Role, subj.Permissions)
}

/* ===================== ISSUE TOKENS ===================== */

// Issue starts a new session for subjectID.
func (i *Issuer) Issue(subjectID, role string, permissions []string) (TokenPair, error) {
	return i.IssueForSession(uuid.NewString(), subjectID, role, permissions)
}

// IssueForSession mints a pair inside an existing session; the rotator
// uses it to continue a lineage.
func (i *Issuer) IssueForSession(sessionID, subjectID, role string, permissions []string) (TokenPair, error) {
	// NumericDate has second precision; truncating keeps iat/exp exact.
	now := i.opts.clock().Truncate(time.Second)

	access, err := i.mint(now, TokenTypeAccess, sessionID, subjectID, role, permissions, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.mint(now, TokenTypeRefresh, sessionID, subjectID, role, permissions, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(i.accessTTL / time.Second),
		SessionID:    sessionID,
	}, nil
}

func (i *Issuer) mint(
	now time.Time,
	tokenType TokenType,
	sessionID,
	subjectID,
	role string,
	permissions []string,
	ttl time.Duration,
) (string, error) {
	claims := Claims{
		UserID:      subjectID,
		Role:        role,
		Permissions: permissions,
		SessionID:   sessionID,
		TokenType:   tokenType,
	}
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwtTime(now)
	claims.ExpiresAt = jwtTime(now.Add(ttl))
	return i.codec.Encode(claims)
}
