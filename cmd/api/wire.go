package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"hr-platform/internal/audit"
	"hr-platform/internal/auth"
	"hr-platform/internal/config"
	"hr-platform/internal/directory"
	"hr-platform/internal/httpapi"
	"hr-platform/internal/rbac"
	"hr-platform/internal/revocation"
	"hr-platform/pkg/utils"
)

// app holds everything main needs to serve and shut down.
type app struct {
	handlers httpapi.Handlers
	sweeper  revocation.Sweeper
	closers  []func() error
}

func (a *app) close(log *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error("close failed", "err", err)
		}
	}
}

// build opens the configured backends and assembles the auth services.
// Shared deps are passed explicitly; nothing lives in globals.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}

	var db *sql.DB
	if cfg.NeedsPostgres() {
		var err error
		db, err = utils.OpenPostgres(ctx, utils.DriverPgx, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: cfg.DB.MaxOpenConns})
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		a.closers = append(a.closers, db.Close)
	}

	store, err := buildRevocationStore(ctx, cfg, db, a)
	if err != nil {
		a.close(log)
		return nil, err
	}

	dir, err := buildDirectory(ctx, cfg, db)
	if err != nil {
		a.close(log)
		return nil, err
	}

	var auditRepo audit.Repository = audit.NewMemoryRepo()
	if db != nil {
		pgRepo := audit.NewPostgresRepo(db)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			a.close(log)
			return nil, fmt.Errorf("audit schema: %w", err)
		}
		auditRepo = pgRepo
	}

	opts := []auth.Option{
		auth.WithLogger(log),
		auth.WithAuditor(audit.NewService(auditRepo, log)),
	}
	codec, err := auth.NewCodec(cfg.Auth)
	if err != nil {
		a.close(log)
		return nil, err
	}
	issuer, err := auth.NewIssuer(codec, dir, cfg.Auth, opts...)
	if err != nil {
		a.close(log)
		return nil, err
	}
	rotator, err := auth.NewRotator(issuer, codec, store, opts...)
	if err != nil {
		a.close(log)
		return nil, err
	}
	guard, err := auth.NewGuard(codec, store, rbac.DefaultTable(), opts...)
	if err != nil {
		a.close(log)
		return nil, err
	}
	revoker, err := auth.NewRevoker(issuer, codec, store, opts...)
	if err != nil {
		a.close(log)
		return nil, err
	}

	a.handlers = httpapi.Handlers{Issuer: issuer, Rotator: rotator, Guard: guard, Revoker: revoker}
	return a, nil
}

func buildRevocationStore(ctx context.Context, cfg config.Config, db *sql.DB, a *app) (revocation.Store, error) {
	switch cfg.Revocation.Backend {
	case config.BackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:        cfg.RedisAddr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			ReadTimeout: cfg.Redis.ReadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("redis init: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		// Redis expires keys itself; no sweeper.
		return revocation.NewRedisStore(rdb, cfg.Revocation.KeyPrefix), nil
	case config.BackendPostgres:
		s := revocation.NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("revocation schema: %w", err)
		}
		a.sweeper = s
		return s, nil
	case config.BackendMemory:
		s := revocation.NewMemoryStore()
		a.sweeper = s
		return s, nil
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", cfg.Revocation.Backend)
	}
}

func buildDirectory(ctx context.Context, cfg config.Config, db *sql.DB) (auth.Authenticator, error) {
	adminID := cfg.Directory.BootstrapAdminID
	adminSecret := cfg.Directory.BootstrapAdminSecret

	switch cfg.Directory.Backend {
	case config.BackendPostgres:
		d := directory.NewPostgresDirectory(db)
		if err := utils.EnsureSchemas(ctx, d); err != nil {
			return nil, err
		}
		if adminID != "" {
			if err := d.Upsert(ctx, adminID, rbac.RoleAdmin, adminSecret); err != nil {
				return nil, err
			}
		}
		return d, nil
	case config.BackendMemory:
		d := directory.NewMemoryDirectory()
		if adminID != "" {
			if err := d.Put(adminID, rbac.RoleAdmin, adminSecret); err != nil {
				return nil, err
			}
		}
		return d, nil
	default:
		return nil, errors.New("unknown directory backend " + cfg.Directory.Backend)
	}
}
