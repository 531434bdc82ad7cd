package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/app"
	"github.com/Gustavoab019/startia/internal/config"
	"github.com/Gustavoab019/startia/internal/handler"
	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := i18n.Init(cfg.Locale); err != nil {
		zl.Fatal("load locales", zap.Error(err))
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, zl, app.Options{Deliver: true})
	if err != nil {
		zl.Fatal("open app", zap.Error(err))
	}
	defer a.Close(context.Background())

	webhook := handler.NewWebhookHandler(a.Engine, handler.WebhookConfig{
		Token: cfg.ZAPI.WebhookToken,
		Async: true,
	}, zl)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.RouterDeps{
			Webhook: webhook,
			Reports: handler.NewReportHandler(a.Reports, zl),
			Ready:   a.Ready,
			Logger:  zl,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zl.Info("crew assistant started",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("zapi", cfg.ZAPIEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := webhook.Drain(shutdownCtx); err != nil {
		zl.Warn("in-flight messages not finished", zap.Error(err))
	}
}
