package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"invictcrm/pkg/applications"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/config"
	"invictcrm/pkg/dashboard"
	"invictcrm/pkg/documents"
	"invictcrm/pkg/events"
	"invictcrm/pkg/leads"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/payments"
	"invictcrm/pkg/platform"
	"invictcrm/pkg/storage"
	"invictcrm/pkg/store"
	"invictcrm/pkg/students"
	"invictcrm/pkg/tasks"
	"invictcrm/pkg/users"
	"invictcrm/process/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := platform.NewLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// `invictcrm migrate` runs migrations and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		db, err := store.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := initDB(ctx, db, cfg, true, log); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
		fmt.Println("migration and seeding completed")
		return
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := platform.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := initDB(ctx, p.DB, cfg, cfg.DBAutoMigrate, log); err != nil {
		return err
	}

	var provider payments.Provider = payments.Unconfigured{}
	if cfg.StripeSecretKey != "" {
		provider = payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; payment routes will fail")
	}
	srv := newServer(cfg, backends{
		store:    p.DB,
		notifier: p.Notifier,
		events:   p.Events,
		storage:  p.Storage,
		payments: provider,
	}, log)

	// A memory queue is only visible inside this process, so it needs its
	// consumers here too.
	wait := func() {}
	if cfg.QueueDriver == "memory" {
		log.Warn("using in-memory queues; jobs are lost on restart")
		if wait, err = worker.StartConsumers(ctx, cfg, p, p.DB, srv.documents, log); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		errc <- httpSrv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
	}
	cancel()
	wait()
	return serveErr
}

// backends are the shared clients the services are built on.
type backends struct {
	store    store.Store
	notifier notify.Notifier
	events   events.Publisher
	storage  storage.Storage
	payments payments.Provider
}

func newServer(cfg config.Config, b backends, log *slog.Logger) *server {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	return &server{
		tokens:       tokens,
		auth:         auth.NewService(b.store, tokens, b.notifier, log),
		leads:        leads.NewService(b.store, b.notifier, b.events, cfg.StaffEmail, log),
		applications: applications.NewService(b.store, b.notifier, b.events, log),
		documents:    documents.NewService(b.store, b.storage, b.notifier, b.events, cfg.URLExpiry, log),
		payments:     payments.NewService(b.store, b.payments, b.events, cfg.Currency, cfg.AppURL, log),
		students:     students.NewService(b.store, log),
		users:        users.NewService(b.store, log),
		tasks:        tasks.NewService(b.store, log),
		dashboard:    dashboard.NewService(b.store),
		log:          log,
	}
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metricsMiddleware())
	setupRoutes(r, s)
	return r
}
