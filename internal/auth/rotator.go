package auth

import (
	"context"
	"errors"
	"fmt"

	"hr-platform/internal/audit"
	"hr-platform/internal/revocation"
)

// Rotator exchanges a refresh token for a new pair and revokes the one it
// consumed. A rotated token that comes back is treated as stolen and the
// whole session is revoked.
type Rotator struct {
	issuer *Issuer
	codec  *Codec
	store  revocation.Store
	opts   options
}

func NewRotator(issuer *Issuer, codec *Codec, store revocation.Store, opts ...Option) (*Rotator, error) {
	if issuer == nil || codec == nil || store == nil {
		return nil, errors.New("auth: rotator needs issuer, codec and revocation store")
	}
	return &Rotator{issuer: issuer, codec: codec, store: store, opts: buildOptions(opts)}, nil
}

func (r *Rotator) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	now := r.opts.clock()

	claims, err := r.codec.Decode(refreshToken, now)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return TokenPair{}, ErrWrongTokenKind
	}

	entries, err := r.store.Lookup(ctx,
		revocation.TokenKey(claims.ID),
		revocation.SessionKey(claims.SessionID),
		revocation.SubjectKey(claims.UserID),
	)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	for _, e := range entries {
		if e.Key == revocation.TokenKey(claims.ID) && e.Reason == revocation.ReasonRotated {
			return TokenPair{}, r.reuseDetected(ctx, claims)
		}
	}
	if revokedBy(entries, claims) {
		return TokenPair{}, ErrRevoked
	}

	pair, err := r.issuer.IssueForSession(claims.SessionID, claims.UserID, claims.Role, claims.Permissions)
	if err != nil {
		return TokenPair{}, err
	}

	// Only one rotation of a given token can win the claim.
	won, err := r.store.Revoke(ctx, revocation.Entry{
		Key:           revocation.TokenKey(claims.ID),
		Reason:        revocation.ReasonRotated,
		RevokedAt:     now,
		NaturalExpiry: claims.ExpiresAt.Time,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	if !won {
		return TokenPair{}, r.reuseDetected(ctx, claims)
	}

	r.opts.log.Debug("refresh token rotated",
		"subject_id", claims.UserID,
		"session_id", claims.SessionID,
	)
	return pair, nil
}

func (r *Rotator) reuseDetected(ctx context.Context, claims Claims) error {
	now := r.opts.clock()
	// Every refresh token in the lineage expires within one refresh TTL.
	_, err := r.store.Revoke(ctx, revocation.Entry{
		Key:           revocation.SessionKey(claims.SessionID),
		Reason:        revocation.ReasonReuseDetected,
		RevokedAt:     now,
		NaturalExpiry: now.Add(r.issuer.RefreshTTL()),
	})

	r.opts.log.Warn("refresh token reuse detected",
		"security_event", true,
		"subject_id", claims.UserID,
		"session_id", claims.SessionID,
		"token_id", claims.ID,
	)
	r.opts.record(ctx, audit.Event{
		Type:      audit.EventReuseDetected,
		SubjectID: claims.UserID,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
	})

	if err != nil {
		return fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	return ErrReuseDetected
}

// revokedBy reports whether any live entry invalidates the credential
// described by claims. Subject entries only cover tokens issued at or
// before the revocation.
func revokedBy(entries []revocation.Entry, claims Claims) bool {
	for _, e := range entries {
		switch e.Key {
		case revocation.TokenKey(claims.ID), revocation.SessionKey(claims.SessionID):
			return true
		case revocation.SubjectKey(claims.UserID):
			if claims.IssuedAt != nil && !claims.IssuedAt.Time.After(e.RevokedAt) {
				return true
			}
		}
	}
	return false
}
