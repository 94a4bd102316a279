package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medscan/pkg/analysis"
	"medscan/pkg/config"
	"medscan/pkg/logging"
	"medscan/pkg/metrics"
)

var (
	cfg        *config.Config
	jwtSecret  []byte
	logger     = zap.NewNop()
	appMetrics *metrics.Metrics
	svc        analyzer
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger = logging.New(cfg.IsDev(), cfg.LogLevel)
	defer logger.Sync()

	secret, fallback := cfg.Secret()
	if fallback {
		logger.Warn("JWT_SECRET not set, using development fallback")
	}
	jwtSecret = secret

	// `./medscan migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if !cfg.DBEnabled() {
			logger.Fatal("DB_DSN is required for migrate")
		}
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	if cfg.DBEnabled() {
		initDB()
	} else {
		logger.Info("DB_DSN not set, scan history and operator accounts disabled")
	}
	ensureUploadBase()

	appMetrics = metrics.New(nil)
	service := analysis.FromConfig(cfg, appMetrics, logger)
	svc = service

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := service.LoadModels(ctx); err != nil {
			logger.Error("models unavailable, analysis endpoints will return 503", zap.Error(err))
		}
	}()

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestID(), requestLogger(logger), recovery(logger))
	setupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting medscan", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
