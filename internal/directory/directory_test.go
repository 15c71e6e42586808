package directory

import (
	"context"
	"os"
	"testing"

	"hr-platform/pkg/utils"

	"github.com/google/uuid"
)

func TestMemoryDirectory_Authenticate(t *testing.T) {
	d := NewMemoryDirectory()
	if err := d.Put("emp-1", "employee", "hunter2", "leave:read"); err != nil {
		t.Fatalf("put: %v", err)
	}

	s, err := d.Authenticate(context.Background(), "emp-1", "hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if s.ID != "emp-1" || s.Role != "employee" || len(s.Permissions) != 1 {
		t.Fatalf("unexpected subject: %+v", s)
	}
	if s.PasswordHash != nil {
		t.Fatalf("password hash must not leave the directory")
	}
}

func TestMemoryDirectory_RejectionsAreIndistinguishable(t *testing.T) {
	d := NewMemoryDirectory()
	_ = d.Put("emp-1", "employee", "hunter2")
	_ = d.Put("emp-2", "employee", "secret")
	d.SetActive("emp-2", false)

	cases := []struct{ id, secret string }{
		{"emp-1", "wrong"},
		{"nobody", "hunter2"},
		{"emp-2", "secret"},
		{"", ""},
	}
	for _, c := range cases {
		if _, err := d.Authenticate(context.Background(), c.id, c.secret); err != ErrInvalidCredentials {
			t.Fatalf("%q: expected ErrInvalidCredentials, got %v", c.id, err)
		}
	}
}

func TestMemoryDirectory_PutValidates(t *testing.T) {
	d := NewMemoryDirectory()
	if err := d.Put("", "employee", "x"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := d.Put("id", "employee", ""); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument for empty secret, got %v", err)
	}
}

func TestPostgresDirectory_NotConfigured(t *testing.T) {
	d := NewPostgresDirectory(nil)
	if _, err := d.Authenticate(context.Background(), "a", "b"); err == nil || err == ErrInvalidCredentials {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPostgresDirectory_SchemaAndUpsertNeedDB(t *testing.T) {
	d := NewPostgresDirectory(nil)
	if err := d.EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected error without db")
	}
	if err := d.Upsert(context.Background(), "a", "admin", "s"); err == nil {
		t.Fatalf("expected error without db")
	}
}

func TestPostgresDirectory_UpsertAndAuthenticate(t *testing.T) {
	dsn := os.Getenv("HR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HR_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := utils.OpenPostgres(ctx, utils.DriverPgx, dsn, utils.PostgresPoolConfig{MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	d := NewPostgresDirectory(db)
	if err := d.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	id := "test-" + uuid.NewString()
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), `DELETE FROM subjects WHERE id = $1`, id) })

	if err := d.Upsert(ctx, id, "employee", "first", "leave:read", "payroll:read"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	s, err := d.Authenticate(ctx, id, "first")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if s.Role != "employee" || len(s.Permissions) != 2 || s.Permissions[1] != "payroll:read" || len(s.PasswordHash) != 0 {
		t.Fatalf("unexpected subject: %+v", s)
	}

	// Upsert rotates the secret in place.
	if err := d.Upsert(ctx, id, "hr_manager", "second"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if _, err := d.Authenticate(ctx, id, "first"); err != ErrInvalidCredentials {
		t.Fatalf("old secret must fail, got %v", err)
	}
	if s, err := d.Authenticate(ctx, id, "second"); err != nil || s.Role != "hr_manager" || len(s.Permissions) != 0 {
		t.Fatalf("unexpected result after upsert: %+v %v", s, err)
	}
	if _, err := d.Authenticate(ctx, "missing-"+id, "second"); err != ErrInvalidCredentials {
		t.Fatalf("unknown subject must be invalid credentials, got %v", err)
	}
}
