package audit

import "time"

// Event is an immutable, append-only security audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - Type is required.
// - Recording is best-effort; auth flows never block on audit failures.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// SubjectID is the identity the event is about.
	SubjectID string `json:"subject_id,omitempty" db:"subject_id"`
	SessionID string `json:"session_id,omitempty" db:"session_id"`
	TokenID   string `json:"token_id,omitempty" db:"token_id"`

	// ActorID is who caused the event when that differs from the subject
	// (administrative revocations).
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventLoginFailed    EventType = "login_failed"
	EventReuseDetected  EventType = "reuse_detected"
	EventLogout         EventType = "logout"
	EventSessionRevoked EventType = "session_revoked"
	EventSubjectRevoked EventType = "subject_revoked"
)

// Security reports whether operators should be alerted on this type.
func (t EventType) Security() bool {
	return t == EventReuseDetected
}
