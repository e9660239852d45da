package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/api"
	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/config"
	"github.com/baharkarakas/crowdfund-backend/internal/db"
	"github.com/baharkarakas/crowdfund-backend/internal/logger"
	"github.com/baharkarakas/crowdfund-backend/internal/metrics"
	"github.com/baharkarakas/crowdfund-backend/internal/notify"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
	"github.com/baharkarakas/crowdfund-backend/internal/repository/memory"
	"github.com/baharkarakas/crowdfund-backend/internal/repository/postgres"
	"github.com/baharkarakas/crowdfund-backend/internal/services"
	"github.com/baharkarakas/crowdfund-backend/internal/storage"
	"github.com/baharkarakas/crowdfund-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Store, func(), error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("migrations applied")
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := storage.NewS3ImageStore(ctx, storage.Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return err
	}

	metrics.Init()
	wp := worker.NewPool(cfg.MailWorkers, 256)
	defer wp.Stop()

	mailer := notify.NewMailSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SenderMail,
	})
	dispatcher := notify.NewDispatcher(mailer, wp, cfg.MailTimeout, log)

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	r := api.NewRouter(api.RouterDeps{
		Cfg:       cfg,
		Tokens:    tm,
		UserSvc:   services.NewUserService(store, tm, dispatcher, images, cfg, log),
		ProjSvc:   services.NewProjectService(store, images, log),
		BudgetSvc: services.NewBudgetService(store, cfg.LedgerLegacyStaleRemove),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
