package authclient

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStore_RoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	s := NewKeyringStore("hrctl-test", "default")

	if _, err := s.Load(ctx); !errors.Is(err, ErrNoTokens) {
		t.Fatalf("expected ErrNoTokens, got %v", err)
	}
	want := Tokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil || got != want {
		t.Fatalf("load: %+v %v", got, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear should be a no-op: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNoTokens) {
		t.Fatalf("expected ErrNoTokens after clear, got %v", err)
	}
}

func TestKeyringStore_BackendError(t *testing.T) {
	keyring.MockInitWithError(errors.New("locked"))
	defer keyring.MockInit()

	if _, err := NewKeyringStore("svc", "u").Load(context.Background()); err == nil || errors.Is(err, ErrNoTokens) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Tokens{})
	if _, err := s.Load(ctx); !errors.Is(err, ErrNoTokens) {
		t.Fatalf("expected ErrNoTokens, got %v", err)
	}
	_ = s.Save(ctx, Tokens{AccessToken: "a"})
	if got, _ := s.Load(ctx); got.AccessToken != "a" {
		t.Fatalf("unexpected tokens: %+v", got)
	}
}
