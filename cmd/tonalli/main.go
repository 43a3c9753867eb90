package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"tonalli/internal/auth"
	"tonalli/internal/config"
	"tonalli/internal/db"
	httpx "tonalli/internal/http"
	"tonalli/internal/jobs"
	"tonalli/internal/metrics"
	"tonalli/internal/notify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	gdb, err := db.Connect(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	coll := metrics.NewCollector()
	r := httpx.NewRouter(cfg, gdb, jwtSvc, coll)

	bot := notify.NewTelegram(nil, cfg.TelegramBotToken, logger)

	jobsRepo := &jobs.Repo{DB: gdb}
	worker := &jobs.Worker{
		ID:       "worker-" + uuid.NewString()[:8],
		Repo:     jobsRepo,
		DB:       gdb,
		Notifier: bot,
		Tone:     notify.NewTone(cfg.OpenRouterAPIKey),
		Metrics:  coll,
		Logger:   logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	if cfg.TelegramBotToken != "" && cfg.PublicURL != "" {
		if err := bot.SetWebhook(ctx, cfg.PublicURL+"/api/telegram/webhook"); err != nil {
			logger.Error("telegram webhook registration failed", "error", err)
		}
	}

	// Purge finished jobs nightly, keeping a week of history.
	cr := cron.New()
	_, _ = cr.AddFunc("@daily", func() {
		n, err := jobsRepo.CleanupFinished(7 * 24 * time.Hour)
		if err != nil {
			logger.Error("job cleanup failed", "error", err)
			return
		}
		logger.Info("job cleanup", "deleted", n)
	})
	cr.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	cr.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
