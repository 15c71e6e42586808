package auth

import (
	"context"
	"errors"
	"time"
)

// Identity is what the resource guard attaches to an authenticated call.
type Identity struct {
	SubjectID   string
	Role        string
	Permissions []string
	SessionID   string
	TokenID     string
	ExpiresAt   time.Time
}

func identityFromClaims(c Claims) Identity {
	id := Identity{
		SubjectID:   c.UserID,
		Role:        c.Role,
		Permissions: c.Permissions,
		SessionID:   c.SessionID,
		TokenID:     c.ID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

type ctxKey int

const ctxIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.SubjectID != "" {
		return id, nil
	}
	return Identity{}, errors.New("identity not in context")
}

func SubjectID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	return id.SubjectID, nil
}

func Role(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	if id.Role == "" {
		return "", errors.New("role not in context")
	}
	return id.Role, nil
}
