package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	adapthttp "healthlog/internal/adapter/http"
	"healthlog/internal/adapter/postgres"
)

// sessionSweepInterval is how often expired sessions are deleted.
const sessionSweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web app and JSON API",
	Long: `Serve the web app, the JSON API under /api and Prometheus metrics on
/metrics. Remote writes are delivered by a background worker.

Without a database URL the server runs local-only and without sign-in.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("web-dir", "web", "Directory with the static web app")
	serveCmd.Flags().Bool("disable-auth", false, "Serve the API without sign-in (local use only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, serveMode)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck
	logger := rt.logs.Logger("http")

	oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC)
	if err != nil {
		return err
	}

	srv := adapthttp.New(adapthttp.Services{
		Store:    rt.store,
		Entries:  rt.entries,
		Insights: rt.insights,
		Sync:     rt.sync,
		Auth:     rt.auth,
	}, cfg.WebDir, logger).
		WithOIDC(oidcCfg).
		WithMetrics(promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	if cfg.DisableAuth {
		srv = srv.WithoutAuth()
	}

	workerDone := make(chan struct{})
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go func() {
		rt.outbox.Run(workerCtx)
		close(workerDone)
	}()

	if rt.db != nil {
		go sweepSessions(ctx, postgres.NewSessionRepo(rt.db), logger)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Addr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = httpSrv.Shutdown(shutdownCtx)
		cancel()
	}

	// Give in-flight remote writes a chance before marking the rest unsynced.
	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	for rt.outbox.Pending() > 0 && flushCtx.Err() == nil {
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	stopWorker()
	<-workerDone

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func sweepSessions(ctx context.Context, sessions *postgres.SessionRepo, logger *log.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.DeleteExpired(ctx); err != nil {
				logger.Printf("delete expired sessions: %v", err)
			}
		}
	}
}
