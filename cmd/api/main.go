package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crickpick/contest-backend/internal/api"
	"github.com/crickpick/contest-backend/internal/auth"
	"github.com/crickpick/contest-backend/internal/catalog"
	"github.com/crickpick/contest-backend/internal/config"
	"github.com/crickpick/contest-backend/internal/db"
	"github.com/crickpick/contest-backend/internal/logger"
	"github.com/crickpick/contest-backend/internal/metrics"
	"github.com/crickpick/contest-backend/internal/middleware"
	"github.com/crickpick/contest-backend/internal/notify"
	"github.com/crickpick/contest-backend/internal/repository/postgres"
	"github.com/crickpick/contest-backend/internal/services"
	"github.com/crickpick/contest-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)

	var sink notify.Sink = notify.LogSink{Log: log}
	if len(cfg.KafkaBrokers) > 0 {
		ks := notify.NewKafkaSink(cfg.KafkaBrokers)
		defer ks.Close()
		sink = ks
	}

	// Stopped before the sink closes so queued notifications still go out.
	wp := worker.NewPool(4)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, 15*time.Minute, 7*24*time.Hour)
	cat := catalog.NewStaticProvider(catalog.DefaultPlayers())

	accountSvc := services.NewAccountService(repos.Accounts, repos.Ledger, tm, cfg.InitialTokens)
	ledgerSvc := services.NewLedgerService(repos.Ledger)
	entrySvc := services.NewEntryService(
		repos.Entries,
		repos.Ledger,
		repos.AuditLogs,
		sink,
		wp,
		cfg.EntryFee,
		cfg.BudgetCap,
		cfg.RosterSize,
	)

	r := api.NewRouter(cfg, accountSvc, ledgerSvc, entrySvc, cat, middleware.NewAuthMiddleware(tm))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
