package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records security events for operators.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to employees.
// - Callers treat recording as best-effort.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Record stamps and appends e. Security events are also logged at WARN so
// they reach alerting without a database query.
func (s *Service) Record(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}

	if e.Type.Security() {
		s.log.Warn("security event",
			"security_event", true,
			"type", e.Type,
			"subject_id", e.SubjectID,
			"session_id", e.SessionID,
			"token_id", e.TokenID,
		)
	}
	return s.repo.Append(ctx, e)
}
