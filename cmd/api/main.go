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

	"healthline-api/internal/audit"
	"healthline-api/internal/auth"
	"healthline-api/internal/calls"
	"healthline-api/internal/config"
	"healthline-api/internal/observability/metrics"
	"healthline-api/internal/payments"
	"healthline-api/internal/reporting"
	"healthline-api/internal/telephony"
	"healthline-api/pkg/logger"
	"healthline-api/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment wins over the file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var db *sql.DB
	if cfg.HasDatabase() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		log.Warn("DB_HOST not set; rate limiting, audit logging and payment updates are disabled")
	}

	var rdb *redis.Client
	if cfg.HasRedis() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d, err := buildDeps(cfg, db, rdb, reg, log)
	if err != nil {
		log.Error("dependency init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(log, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "rate_limit_mode", cfg.RateLimit.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// buildDeps constructs every service from config. db and rdb may be nil.
func buildDeps(cfg config.Config, db *sql.DB, rdb *redis.Client, reg *prometheus.Registry, log *slog.Logger) (deps, error) {
	d := deps{
		Config:  cfg,
		DB:      db,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	m := metrics.NewHandlerMetrics(reg)

	sessions, err := auth.NewManager(cfg.Auth)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		log.Warn("SESSION_JWT_SECRET not set; callers are anonymous and admin routes are closed")
	case err != nil:
		return deps{}, err
	default:
		d.Sessions = sessions
	}

	// Emergency calls.
	callOpts := calls.Options{Vapi: cfg.Vapi, Metrics: m}
	if cfg.Vapi.APIKey != "" {
		vapi, err := telephony.NewVapiClient(telephony.VapiConfig{APIKey: cfg.Vapi.APIKey, BaseURL: cfg.Vapi.BaseURL})
		if err != nil {
			return deps{}, err
		}
		callOpts.Provider = vapi
	}
	var callLog audit.Repository
	if db != nil {
		callLog = audit.NewPostgresRepo(db)
		callOpts.Recorder = audit.NewRecorder(callLog)
	}
	switch {
	case cfg.RateLimit.Mode == config.RateLimitModeRedis && rdb != nil:
		callOpts.Limiter = calls.NewRedisLimiter(rdb, cfg.RateLimit)
	case callLog != nil:
		callOpts.Limiter = calls.NewStoreLimiter(callLog, cfg.RateLimit)
	}
	d.Calls = calls.NewHandler(calls.NewService(callOpts))

	// Payments.
	payOpts := payments.Options{Metrics: m}
	if cfg.Paystack.SecretKey != "" {
		gw, err := payments.NewPaystackClient(payments.PaystackConfig{SecretKey: cfg.Paystack.SecretKey, BaseURL: cfg.Paystack.BaseURL})
		if err != nil {
			return deps{}, err
		}
		payOpts.Gateway = gw
	}
	if db != nil {
		payOpts.Repository = payments.NewPostgresRepo(db)
	}
	d.Payments = payments.NewHandler(payments.NewService(payOpts))

	// Admin reporting.
	var cache reporting.Cache
	if rdb != nil {
		cache = reporting.NewRedisCache(rdb)
	}
	d.Reports = reporting.NewHandler(reporting.NewService(callLog, cache))

	return d, nil
}
