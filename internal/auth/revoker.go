package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hr-platform/internal/audit"
	"hr-platform/internal/revocation"
)

// Revoker invalidates sessions on logout and on administrative action.
type Revoker struct {
	issuer *Issuer
	codec  *Codec
	store  revocation.Store
	opts   options
}

func NewRevoker(issuer *Issuer, codec *Codec, store revocation.Store, opts ...Option) (*Revoker, error) {
	if issuer == nil || codec == nil || store == nil {
		return nil, errors.New("auth: revoker needs issuer, codec and revocation store")
	}
	return &Revoker{issuer: issuer, codec: codec, store: store, opts: buildOptions(opts)}, nil
}

// Logout revokes the presented access token and its whole session. A
// second logout with the same token succeeds.
func (r *Revoker) Logout(ctx context.Context, accessToken, ip string) error {
	now := r.opts.clock()
	claims, err := r.codec.Decode(accessToken, now)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.TokenType != TokenTypeAccess {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, ErrWrongTokenKind)
	}

	entries := []revocation.Entry{
		{
			Key:           revocation.TokenKey(claims.ID),
			Reason:        revocation.ReasonLogout,
			RevokedAt:     now,
			NaturalExpiry: claims.ExpiresAt.Time,
		},
		{
			Key:           revocation.SessionKey(claims.SessionID),
			Reason:        revocation.ReasonLogout,
			RevokedAt:     now,
			NaturalExpiry: now.Add(r.issuer.RefreshTTL()),
		},
	}
	for _, e := range entries {
		if _, err := r.store.Revoke(ctx, e); err != nil {
			return fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
		}
	}

	r.opts.record(ctx, audit.Event{
		Type:      audit.EventLogout,
		SubjectID: claims.UserID,
		SessionID: claims.SessionID,
		TokenID:   claims.ID,
		IPAddress: ip,
	})
	return nil
}

// RevokeSession rejects every token of sessionID from now on.
func (r *Revoker) RevokeSession(ctx context.Context, actorID, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("auth: session id is required")
	}
	if err := r.revokeAdmin(ctx, revocation.SessionKey(sessionID)); err != nil {
		return err
	}
	r.opts.log.Info("session revoked", "actor_id", actorID, "session_id", sessionID)
	r.opts.record(ctx, audit.Event{
		Type:      audit.EventSessionRevoked,
		SessionID: sessionID,
		ActorID:   actorID,
	})
	return nil
}

// RevokeSubject rejects every token issued to subjectID up to now. Tokens
// from later logins are unaffected.
func (r *Revoker) RevokeSubject(ctx context.Context, actorID, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return errors.New("auth: subject id is required")
	}
	if err := r.revokeAdmin(ctx, revocation.SubjectKey(subjectID)); err != nil {
		return err
	}
	r.opts.log.Info("subject revoked", "actor_id", actorID, "subject_id", subjectID)
	r.opts.record(ctx, audit.Event{
		Type:      audit.EventSubjectRevoked,
		SubjectID: subjectID,
		ActorID:   actorID,
	})
	return nil
}

func (r *Revoker) revokeAdmin(ctx context.Context, key string) error {
	now := r.opts.clock()
	err := r.store.Put(ctx, revocation.Entry{
		Key:           key,
		Reason:        revocation.ReasonAdminRevoke,
		RevokedAt:     now,
		NaturalExpiry: now.Add(r.issuer.RefreshTTL()),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	return nil
}
