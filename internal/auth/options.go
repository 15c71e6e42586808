package auth

import (
	"context"
	"log/slog"
	"time"

	"hr-platform/internal/audit"
)

// Auditor records security events. *audit.Service satisfies it.
type Auditor interface {
	Record(ctx context.Context, e audit.Event) error
}

type options struct {
	clock   func() time.Time
	log     *slog.Logger
	auditor Auditor
}

// Option configures the issuer, rotator, guard and revoker.
type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithAuditor(a Auditor) Option {
	return func(o *options) { o.auditor = a }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// record appends an audit event; failures are logged and never block
// the auth flow.
func (o options) record(ctx context.Context, e audit.Event) {
	if o.auditor == nil {
		return
	}
	if err := o.auditor.Record(ctx, e); err != nil {
		o.log.Warn("audit record failed", "type", e.Type, "err", err)
	}
}
