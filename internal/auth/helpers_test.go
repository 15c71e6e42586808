package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"hr-platform/internal/audit"
	"hr-platform/internal/config"
	"hr-platform/internal/directory"
	"hr-platform/internal/revocation"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTKeyID:        "k1",
		JWTIssuer:       "hr-platform",
		JWTAudience:     "hr-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Leeway:          30 * time.Second,
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore is a revocation store whose backend is down.
type failingStore struct{}

var errBackendDown = errors.New("backend down")

func (failingStore) Revoke(context.Context, revocation.Entry) (bool, error) {
	return false, errBackendDown
}

func (failingStore) Put(context.Context, revocation.Entry) error {
	return errBackendDown
}

func (failingStore) Lookup(context.Context, ...string) ([]revocation.Entry, error) {
	return nil, errBackendDown
}

type staticPolicy struct {
	super  string
	grants map[string][]string
}

func (p staticPolicy) IsSuperRole(role string) bool { return role == p.super }

func (p staticPolicy) Grants(role, permission string) bool {
	for _, g := range p.grants[role] {
		if g == permission {
			return true
		}
	}
	return false
}

type kit struct {
	clock   *testClock
	codec   *Codec
	store   *revocation.MemoryStore
	dir     *directory.MemoryDirectory
	events  *audit.MemoryRepo
	issuer  *Issuer
	rotator *Rotator
	guard   *Guard
	revoker *Revoker
}

func newKit(t *testing.T) *kit {
	t.Helper()
	k := &kit{
		clock:  newTestClock(),
		store:  revocation.NewMemoryStore(),
		dir:    directory.NewMemoryDirectory(),
		events: audit.NewMemoryRepo(),
	}
	cfg := testAuthConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []Option{
		WithClock(k.clock.Now),
		WithLogger(log),
		WithAuditor(audit.NewService(k.events, log)),
	}

	var err error
	if k.codec, err = NewCodec(cfg); err != nil {
		t.Fatalf("codec: %v", err)
	}
	if k.issuer, err = NewIssuer(k.codec, k.dir, cfg, opts...); err != nil {
		t.Fatalf("issuer: %v", err)
	}
	if k.rotator, err = NewRotator(k.issuer, k.codec, k.store, opts...); err != nil {
		t.Fatalf("rotator: %v", err)
	}
	policy := staticPolicy{super: "admin", grants: map[string][]string{"hr_manager": {"leave:approve"}}}
	if k.guard, err = NewGuard(k.codec, k.store, policy, opts...); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if k.revoker, err = NewRevoker(k.issuer, k.codec, k.store, opts...); err != nil {
		t.Fatalf("revoker: %v", err)
	}
	return k
}

func (k *kit) issue(t *testing.T) TokenPair {
	t.Helper()
	pair, err := k.issuer.Issue("emp-1", "employee", []string{"leave:read"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return pair
}
