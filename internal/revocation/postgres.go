package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hr-platform/pkg/utils"
)

// NOTE: PostgresStore assumes the revocations table below. EnsureSchema
// creates it for local setups; production should run it as a migration.
const revocationsSchema = `
CREATE TABLE IF NOT EXISTS revocations (
  key            TEXT PRIMARY KEY,
  reason         TEXT NOT NULL,
  revoked_at     TIMESTAMPTZ NOT NULL,
  natural_expiry TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS revocations_natural_expiry_idx ON revocations (natural_expiry);
`

// PostgresStore is the durable backend. It survives restarts, which the
// memory backend does not.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, revocationsSchema)
		return err
	})
}

func (s *PostgresStore) Revoke(ctx context.Context, e Entry) (bool, error) {
	if s.db == nil {
		return false, ErrNotConfigured
	}
	if err := validate(e); err != nil {
		return false, err
	}
	now := s.clock()
	if !e.Live(now) {
		return true, nil
	}

	// An expired row that has not been swept yet may be replaced.
	const q = `
INSERT INTO revocations (key, reason, revoked_at, natural_expiry)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET reason = EXCLUDED.reason,
    revoked_at = EXCLUDED.revoked_at,
    natural_expiry = EXCLUDED.natural_expiry
WHERE revocations.natural_expiry <= $5
`
	res, err := s.db.ExecContext(ctx, q, e.Key, string(e.Reason), e.RevokedAt.UTC(), e.NaturalExpiry.UTC(), now.UTC())
	if err != nil {
		return false, fmt.Errorf("revocation: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revocation: rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	if s.db == nil {
		return ErrNotConfigured
	}
	if err := validate(e); err != nil {
		return err
	}
	now := s.clock()
	if !e.Live(now) {
		return nil
	}

	const q = `
INSERT INTO revocations (key, reason, revoked_at, natural_expiry)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET reason = EXCLUDED.reason,
    revoked_at = EXCLUDED.revoked_at,
    natural_expiry = EXCLUDED.natural_expiry
WHERE revocations.revoked_at < EXCLUDED.revoked_at
   OR revocations.natural_expiry <= $5
`
	if _, err := s.db.ExecContext(ctx, q, e.Key, string(e.Reason), e.RevokedAt.UTC(), e.NaturalExpiry.UTC(), now.UTC()); err != nil {
		return fmt.Errorf("revocation: put: %w", err)
	}
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, keys ...string) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrNotConfigured
	}
	if len(keys) == 0 {
		return nil, nil
	}

	const q = `
SELECT key, reason, revoked_at, natural_expiry
FROM revocations
WHERE key = ANY($1) AND natural_expiry > $2
`
	rows, err := s.db.QueryContext(ctx, q, keys, s.clock().UTC())
	if err != nil {
		return nil, fmt.Errorf("revocation: lookup: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Entry, len(keys))
	for rows.Next() {
		var (
			e      Entry
			reason string
		)
		if err := rows.Scan(&e.Key, &reason, &e.RevokedAt, &e.NaturalExpiry); err != nil {
			return nil, fmt.Errorf("revocation: scan: %w", err)
		}
		e.Reason = Reason(reason)
		found[e.Key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("revocation: rows: %w", err)
	}

	var out []Entry
	for _, k := range keys {
		if e, ok := found[k]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if s.db == nil {
		return 0, ErrNotConfigured
	}
	const q = `DELETE FROM revocations WHERE natural_expiry <= $1`
	res, err := s.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("revocation: sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ Sweeper = (*PostgresStore)(nil)
)
