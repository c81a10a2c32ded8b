package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"healthlog/internal/adapter/memory"
	"healthlog/internal/adapter/postgres"
	"healthlog/internal/adapter/remote"
	"healthlog/internal/adapter/sqlite"
	"healthlog/internal/app"
	"healthlog/internal/config"
	"healthlog/internal/domain"
	"healthlog/internal/logging"
	"healthlog/internal/outbox"
)

// flushTimeout bounds how long a CLI command waits for queued remote writes.
const flushTimeout = 30 * time.Second

// runtime is the wired application for one process.
type runtime struct {
	cfg  config.Config
	loc  *time.Location
	logs *logging.Factory

	kv       domain.KeyValueStore
	identity domain.Identity
	db       *postgres.DB
	remote   *remote.Repository
	auth     *app.AuthService
	sync     *app.SyncAdapter
	outbox   *outbox.Outbox
	store    *app.Store
	entries  *app.EntryService
	insights *app.InsightsService
	registry *prometheus.Registry

	closers []func() error
}

// runtimeMode selects how the signed-in user is resolved.
type runtimeMode int

const (
	// cliMode syncs as the account named by --user.
	cliMode runtimeMode = iota
	// serveMode syncs as whoever signs in over HTTP.
	serveMode
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(envFile, cmd.Flags())
}

func openRuntime(ctx context.Context, cfg config.Config, mode runtimeMode) (_ *runtime, err error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, loc: loc, logs: logging.New(cfg.Log)}
	rt.closers = append(rt.closers, rt.logs.Close)
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if cfg.StatePath == ":memory:" {
		rt.kv = memory.New()
	} else {
		kv, err := sqlite.Open(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("open local state: %w", err)
		}
		rt.kv = kv
		rt.closers = append(rt.closers, kv.Close)
	}

	var remoteRepo domain.RemoteRepository
	if cfg.DatabaseURL != "" {
		rt.db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		rt.closers = append(rt.closers, rt.db.Close)

		rt.remote, err = remote.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() error { rt.remote.Close(); return nil })
		remoteRepo = rt.remote
	}

	var identity domain.Identity = domain.StaticIdentity(uuid.Nil)
	switch {
	case rt.db == nil:
	case mode == serveMode:
		rt.auth = app.NewAuthService(postgres.NewUserRepo(rt.db), postgres.NewSessionRepo(rt.db))
		identity = rt.auth
	case cfg.User != "":
		user, err := postgres.NewUserRepo(rt.db).GetByEmail(ctx, cfg.User)
		if err != nil {
			return nil, fmt.Errorf("look up %s: %w", cfg.User, err)
		}
		if user == nil {
			return nil, fmt.Errorf("no account for %s", cfg.User)
		}
		identity = domain.StaticIdentity(user.ID)
	}

	rt.identity = identity

	if mode == serveMode {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	var reg prometheus.Registerer
	if rt.registry != nil {
		reg = rt.registry
	}

	rt.outbox = outbox.New(identity, outbox.Config{
		QueueSize:   cfg.Outbox.QueueSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	}, rt.logs.Logger("outbox"), reg)
	rt.sync = app.NewSyncAdapter(remoteRepo, identity, rt.logs.Logger("sync"))
	rt.store = app.NewStore(ctx, app.StoreConfig{
		KV:     rt.kv,
		Sync:   rt.sync,
		Queue:  rt.outbox,
		Logger: rt.logs.Logger("store"),
	})
	rt.outbox.OnFailure(rt.store.MarkUnsynced)
	if id, ok := identity.CurrentUserID(ctx); ok && mode != serveMode {
		// Another --user's pending entries are parked, never sent as this one.
		rt.store.Claim(ctx, id)
	}
	rt.entries = app.NewEntryService(rt.store)
	rt.insights = app.NewInsightsService(rt.store, loc, nil)

	if rt.auth != nil {
		app.BindSession(rt.auth, rt.store, cfg.PullWait, rt.logs.Logger("auth"))
	}
	return rt, nil
}

// flush delivers queued remote writes before a CLI command exits.
func (rt *runtime) flush(ctx context.Context) {
	if rt.outbox.Pending() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	rt.outbox.Flush(ctx)
}

// Close releases everything openRuntime opened, newest first.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}

// withRuntime opens a CLI runtime for cmd, runs fn and flushes queued
// remote writes.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cfg, cliMode)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	if err := fn(ctx, rt); err != nil {
		return err
	}
	rt.flush(ctx)
	return nil
}

