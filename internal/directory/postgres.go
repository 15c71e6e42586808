package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// NOTE: the subjects table is owned by the HR admin surface. EnsureSchema
// creates it for local setups only.
const subjectsSchema = `
CREATE TABLE IF NOT EXISTS subjects (
  id            TEXT PRIMARY KEY,
  role          TEXT NOT NULL,
  permissions   TEXT[] NOT NULL DEFAULT '{}',
  password_hash BYTEA NOT NULL,
  active        BOOLEAN NOT NULL DEFAULT TRUE
);
`

var errNoDB = errors.New("directory: database not configured")

type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) EnsureSchema(ctx context.Context) error {
	if d.db == nil {
		return errNoDB
	}
	_, err := d.db.ExecContext(ctx, subjectsSchema)
	return err
}

// Upsert stores a subject with a freshly hashed secret. It is used to seed
// the bootstrap admin.
func (d *PostgresDirectory) Upsert(ctx context.Context, id, role, secret string, permissions ...string) error {
	if d.db == nil {
		return errNoDB
	}
	if id == "" || role == "" {
		return ErrInvalidArgument
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}
	if permissions == nil {
		permissions = []string{}
	}

	const q = `
INSERT INTO subjects (id, role, permissions, password_hash, active)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (id) DO UPDATE
SET role = EXCLUDED.role, permissions = EXCLUDED.permissions, password_hash = EXCLUDED.password_hash
`
	if _, err := d.db.ExecContext(ctx, q, id, role, permissions, hash); err != nil {
		return fmt.Errorf("directory: upsert: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) Authenticate(ctx context.Context, subjectID, secret string) (Subject, error) {
	if d.db == nil {
		return Subject{}, errNoDB
	}
	if subjectID == "" || secret == "" {
		return verify(Subject{}, false, secret)
	}

	const q = `
SELECT id, role, permissions, password_hash, active
FROM subjects
WHERE id = $1
`
	var (
		s     Subject
		perms []string
	)
	err := d.db.QueryRowContext(ctx, q, subjectID).Scan(
		&s.ID,
		&s.Role,
		pgtype.NewMap().SQLScanner(&perms),
		&s.PasswordHash,
		&s.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return verify(Subject{}, false, secret)
		}
		return Subject{}, fmt.Errorf("directory: lookup: %w", err)
	}
	s.Permissions = perms
	return verify(s, true, secret)
}
