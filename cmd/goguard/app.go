package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/config"
	"github.com/MrEthical07/goGuard/internal/logger"
	"github.com/MrEthical07/goGuard/store/memory"
	"github.com/MrEthical07/goGuard/store/sqlstore"
)

// app owns the engine and the backends it was wired to.
type app struct {
	engine  *goGuard.Engine
	closers []func()
}

func newApp(ctx context.Context, cfg config.File, log *logger.Logger) (*app, error) {
	a := &app{}

	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, w := range engineCfg.Lint().BySeverity(goGuard.LintWarn) {
		log.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	repo, err := a.repository(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	b := goGuard.New().
		WithConfig(engineCfg).
		WithRepository(repo).
		WithLogger(log.Logger)

	if cfg.Redis.Addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b = b.WithRedis(client)
	}
	if engineCfg.Audit.Enabled {
		b = b.WithAuditSink(goGuard.NewSlogSink(log.Logger))
	}

	engine, err := b.Build()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine
	a.closers = append(a.closers, engine.Close)

	log.Debug("engine ready",
		"redis", cfg.Redis.Addr != "",
		"database", cfg.Database.Dialect,
		"session_persistence", engine.SessionPersistence(),
	)
	return a, nil
}

func (a *app) repository(ctx context.Context, cfg config.File) (goGuard.AccountRepository, error) {
	if cfg.Database.DSN == "" {
		return memory.New(), nil
	}
	dialect, err := sqlstore.ParseDialect(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = store.Close() })
	return store, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
