package revocation

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"hr-platform/pkg/utils"

	"github.com/google/uuid"
)

func TestPostgresStore_NotConfigured(t *testing.T) {
	s := NewPostgresStore(nil)
	ctx := context.Background()

	if _, err := s.Revoke(ctx, entry(TokenKey("t"), ReasonLogout, time.Now(), time.Hour)); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := s.Put(ctx, entry(SubjectKey("s"), ReasonAdminRevoke, time.Now(), time.Hour)); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.Lookup(ctx, TokenKey("t")); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.Sweep(ctx, time.Now()); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := s.EnsureSchema(ctx); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// openTestDB connects to HR_TEST_POSTGRES_DSN or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("HR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HR_TEST_POSTGRES_DSN not set")
	}
	db, err := utils.OpenPostgres(context.Background(), utils.DriverPgx, dsn, utils.PostgresPoolConfig{MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestPostgresStore(t *testing.T) (*PostgresStore, func() string) {
	t.Helper()
	s := NewPostgresStore(openTestDB(t))
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	// Unique keys keep runs against a shared database independent.
	var keys []string
	t.Cleanup(func() {
		for _, k := range keys {
			_, _ = s.db.ExecContext(context.Background(), `DELETE FROM revocations WHERE key = $1`, k)
		}
	})
	return s, func() string {
		k := uuid.NewString()
		keys = append(keys, TokenKey(k), SessionKey(k), SubjectKey(k))
		return k
	}
}

func TestPostgresStore_RevokeLookupAndExpiredReplace(t *testing.T) {
	ctx := context.Background()
	s, newID := newTestPostgresStore(t)
	base := time.Now().Truncate(time.Millisecond)
	now := base
	s.clock = func() time.Time { return now }

	tok, sess := newID(), newID()
	ok, err := s.Revoke(ctx, entry(TokenKey(tok), ReasonRotated, base, time.Hour))
	if err != nil || !ok {
		t.Fatalf("first revoke: ok=%v err=%v", ok, err)
	}
	ok, err = s.Revoke(ctx, entry(TokenKey(tok), ReasonLogout, base, time.Hour))
	if err != nil || ok {
		t.Fatalf("expected second revoke to lose, ok=%v err=%v", ok, err)
	}
	if _, err := s.Revoke(ctx, entry(SessionKey(sess), ReasonLogout, base, time.Minute)); err != nil {
		t.Fatalf("revoke session: %v", err)
	}

	got, err := s.Lookup(ctx, TokenKey(tok), TokenKey("missing"), SessionKey(sess))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2 || got[0].Key != TokenKey(tok) || got[0].Reason != ReasonRotated || got[1].Key != SessionKey(sess) {
		t.Fatalf("unexpected lookup: %+v", got)
	}

	// Past its natural expiry the unswept row can be claimed again.
	now = base.Add(2 * time.Minute)
	ok, err = s.Revoke(ctx, entry(SessionKey(sess), ReasonAdminRevoke, now, time.Minute))
	if err != nil || !ok {
		t.Fatalf("expected expired row to be replaced, ok=%v err=%v", ok, err)
	}
}

func TestPostgresStore_PutMovesCutoffForward(t *testing.T) {
	ctx := context.Background()
	s, newID := newTestPostgresStore(t)
	base := time.Now().Truncate(time.Millisecond)
	key := SubjectKey(newID())

	later := base.Add(time.Minute)
	for _, at := range []time.Time{base, later, base} {
		if err := s.Put(ctx, entry(key, ReasonAdminRevoke, at, time.Hour)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	got, err := s.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 1 || !got[0].RevokedAt.Equal(later) {
		t.Fatalf("expected cutoff at %s, got %+v", later, got)
	}
}

func TestPostgresStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s, newID := newTestPostgresStore(t)
	now := time.Now()
	short := TokenKey(newID())

	if _, err := s.Revoke(ctx, entry(short, ReasonRotated, now, time.Second)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	n, err := s.Sweep(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected at least one eviction, got %d", n)
	}
}
