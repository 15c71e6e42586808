package audit

import (
	"context"
	"database/sql"
	"errors"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
  id          TEXT PRIMARY KEY,
  type        TEXT NOT NULL,
  subject_id  TEXT NOT NULL DEFAULT '',
  session_id  TEXT NOT NULL DEFAULT '',
  token_id    TEXT NOT NULL DEFAULT '',
  actor_id    TEXT NOT NULL DEFAULT '',
  ip_address  TEXT NOT NULL DEFAULT '',
  message     TEXT NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject_id, created_at);
`

// PostgresRepo appends events to the audit_events table. Only INSERT is
// issued; the table should carry an insert-only policy.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return errors.New("audit: database not configured")
	}
	_, err := r.db.ExecContext(ctx, auditSchema)
	return err
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if r.db == nil {
		return errors.New("audit: database not configured")
	}
	const q = `
INSERT INTO audit_events (
  id, type, subject_id, session_id, token_id, actor_id, ip_address, message, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.SubjectID,
		e.SessionID,
		e.TokenID,
		e.ActorID,
		e.IPAddress,
		e.Message,
		e.CreatedAt,
	)
	return err
}
