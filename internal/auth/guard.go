package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"hr-platform/internal/revocation"
)

// PermissionPolicy is the static role fallback consulted when a token does
// not carry a permission explicitly.
type PermissionPolicy interface {
	IsSuperRole(role string) bool
	Grants(role, permission string) bool
}

// Guard authenticates access tokens for protected operations. It only
// reads the revocation store.
type Guard struct {
	codec  *Codec
	store  revocation.Store
	policy PermissionPolicy
	opts   options
}

func NewGuard(codec *Codec, store revocation.Store, policy PermissionPolicy, opts ...Option) (*Guard, error) {
	if codec == nil || store == nil {
		return nil, errors.New("auth: guard needs codec and revocation store")
	}
	return &Guard{codec: codec, store: store, policy: policy, opts: buildOptions(opts)}, nil
}

// Authenticate returns the identity behind an access token. Every
// rejection wraps ErrUnauthenticated except a store outage, which is
// ErrRevocationUnavailable.
func (g *Guard) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := g.codec.Decode(token, g.opts.clock())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.TokenType != TokenTypeAccess {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrWrongTokenKind)
	}

	entries, err := g.store.Lookup(ctx,
		revocation.TokenKey(claims.ID),
		revocation.SessionKey(claims.SessionID),
		revocation.SubjectKey(claims.UserID),
	)
	if err != nil {
		g.opts.log.Error("revocation lookup failed", "err", err)
		return Identity{}, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	if revokedBy(entries, claims) {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrRevoked)
	}

	return identityFromClaims(claims), nil
}

// Authorize succeeds when the identity carries permission, holds the
// highest-privilege role, or the fallback policy grants it.
func (g *Guard) Authorize(id Identity, permission string) error {
	if id.SubjectID == "" {
		return ErrUnauthenticated
	}
	if slices.Contains(id.Permissions, permission) {
		return nil
	}
	if g.policy != nil {
		if g.policy.IsSuperRole(id.Role) || g.policy.Grants(id.Role, permission) {
			return nil
		}
	}
	return ErrForbidden
}
