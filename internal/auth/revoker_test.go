package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"hr-platform/internal/audit"
)

func TestRevoker_LogoutRejectsSessionAndIsIdempotent(t *testing.T) {
	k := newKit(t)
	ctx := context.Background()
	pair := k.issue(t)

	if err := k.revoker.Logout(ctx, pair.AccessToken, "10.0.0.2"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := k.revoker.Logout(ctx, pair.AccessToken, "10.0.0.2"); err != nil {
		t.Fatalf("second logout should succeed: %v", err)
	}

	if _, err := k.guard.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected logged-out token to fail, got %v", err)
	}
	if got := len(k.events.OfType(audit.EventLogout)); got != 2 {
		t.Fatalf("expected 2 logout events, got %d", got)
	}
}

func TestRevoker_LogoutNeedsValidAccessToken(t *testing.T) {
	k := newKit(t)
	pair := k.issue(t)

	for _, tok := range []string{"", "junk", pair.RefreshToken} {
		if err := k.revoker.Logout(context.Background(), tok, ""); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	}
}

func TestRevoker_RevokeSession(t *testing.T) {
	k := newKit(t)
	ctx := context.Background()
	victim := k.issue(t)
	bystander := k.issue(t)

	if err := k.revoker.RevokeSession(ctx, "admin-1", victim.SessionID); err != nil {
		t.Fatalf("revoke session: %v", err)
	}
	if _, err := k.guard.Authenticate(ctx, victim.AccessToken); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
	if _, err := k.rotator.Rotate(ctx, victim.RefreshToken); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked on refresh, got %v", err)
	}
	if _, err := k.guard.Authenticate(ctx, bystander.AccessToken); err != nil {
		t.Fatalf("other sessions must keep working: %v", err)
	}

	events := k.events.OfType(audit.EventSessionRevoked)
	if len(events) != 1 || events[0].ActorID != "admin-1" {
		t.Fatalf("unexpected audit events: %+v", events)
	}

	if err := k.revoker.RevokeSession(ctx, "admin-1", " "); err == nil {
		t.Fatalf("expected error for blank session id")
	}
}

func TestRevoker_StoreOutage(t *testing.T) {
	k := newKit(t)
	pair := k.issue(t)

	r, _ := NewRevoker(k.issuer, k.codec, failingStore{}, WithClock(k.clock.Now))
	if err := r.Logout(context.Background(), pair.AccessToken, ""); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("expected ErrRevocationUnavailable, got %v", err)
	}
}

func TestRevoker_RepeatSubjectRevokeMovesCutoff(t *testing.T) {
	k := newKit(t)
	ctx := context.Background()
	first := k.issue(t)

	if err := k.revoker.RevokeSubject(ctx, "admin-1", "emp-1"); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if _, err := k.guard.Authenticate(ctx, first.AccessToken); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected first session revoked, got %v", err)
	}

	k.clock.Advance(time.Hour)
	second := k.issue(t)
	if _, err := k.guard.Authenticate(ctx, second.AccessToken); err != nil {
		t.Fatalf("login after revoke must work: %v", err)
	}

	if err := k.revoker.RevokeSubject(ctx, "admin-1", "emp-1"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if _, err := k.guard.Authenticate(ctx, second.AccessToken); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected second session revoked, got %v", err)
	}
	if _, err := k.rotator.Rotate(ctx, second.RefreshToken); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected refresh of second session to fail, got %v", err)
	}
	if got := len(k.events.OfType(audit.EventSubjectRevoked)); got != 2 {
		t.Fatalf("expected 2 subject revoke events, got %d", got)
	}
}
