package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns != 25 {
		t.Fatalf("unexpected conn defaults: %+v", c)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %s", c.PingTimeout)
	}
}

func TestPostgresPoolConfigKeepsExplicitValues(t *testing.T) {
	c := PostgresPoolConfig{MaxOpenConns: 5, PingTimeout: time.Second}.withDefaults()
	if c.MaxOpenConns != 5 || c.PingTimeout != time.Second {
		t.Fatalf("explicit values overwritten: %+v", c)
	}
}

type schemaOwnerFunc func(context.Context) error

func (f schemaOwnerFunc) EnsureSchema(ctx context.Context) error { return f(ctx) }

func TestEnsureSchemasStopsAtFirstFailure(t *testing.T) {
	var ran []int
	owner := func(i int, err error) SchemaOwner {
		return schemaOwnerFunc(func(context.Context) error {
			ran = append(ran, i)
			return err
		})
	}

	err := EnsureSchemas(context.Background(), owner(1, nil), owner(2, errors.New("boom")), owner(3, nil))
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(ran) != 2 {
		t.Fatalf("expected to stop after the failing owner, ran %v", ran)
	}
}
