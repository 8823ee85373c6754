package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "modernc.org/sqlite"

	"github.com/ckwame-jpg/portfolio/clock"
	"github.com/ckwame-jpg/portfolio/contributions"
	"github.com/ckwame-jpg/portfolio/playground"
	"github.com/ckwame-jpg/portfolio/session"
)

func main() {
	cfg := loadConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return err
	}
	defer db.Close()

	clk := clock.Real()
	sessions, err := openSessionStore(ctx, cfg, db, clk, logger)
	if err != nil {
		return err
	}
	defer sessions.Close()

	var runner playground.Runner = playground.NewMockRunner()
	if cfg.PlaygroundMode == "live" {
		runner = playground.NewLiveRunner(cfg.APIBaseURL, playground.DefaultCatalog().DemoCredentials, nil, clk)
	}

	srv, err := newServer(cfg, deps{
		db:       db,
		sessions: sessions,
		clock:    clk,
		logger:   logger,
		github: contributions.NewClient(contributions.Config{
			Token:    cfg.GitHubToken,
			Username: cfg.GitHubUsername,
		}, nil, clk),
		runner: runner,
	})
	if err != nil {
		return err
	}
	go srv.janitor(ctx, time.Minute)
	srv.visits.background(func(ctx context.Context) {
		if _, err := srv.visits.cleanup(ctx); err != nil {
			logger.Warn("privacy cleanup failed", "err", err)
		}
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("listening", "addr", httpServer.Addr, "playground", cfg.PlaygroundMode)
	return serve(ctx, httpServer, srv, logger)
}

// serve runs httpServer until ctx is done, then shuts it down. It returns
// once pending visit and event writes have finished, so the caller may close
// the database.
func serve(ctx context.Context, httpServer *http.Server, srv *server, logger *slog.Logger) error {
	defer srv.visits.wait()

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// openSessionStore prefers Redis when REDIS_ADDR is set and reachable and
// falls back to the site database.
func openSessionStore(ctx context.Context, cfg config, db *sql.DB, clk clock.Clock, logger *slog.Logger) (session.Store, error) {
	if cfg.RedisAddr != "" {
		rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, 0)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := rs.Ping(pingCtx)
		if err == nil {
			logger.Info("session store", "backend", "redis", "addr", cfg.RedisAddr)
			return rs, nil
		}
		logger.Warn("redis unavailable, using sqlite sessions", "err", err)
		_ = rs.Close()
	}
	logger.Info("session store", "backend", "sqlite", "path", cfg.DBPath)
	return session.NewSQLiteStore(db, clk)
}
