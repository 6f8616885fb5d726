package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deployment-tracker/internal/accounts"
	"deployment-tracker/internal/audit"
	"deployment-tracker/internal/auth"
	"deployment-tracker/internal/config"
	"deployment-tracker/internal/deployments"
	"deployment-tracker/internal/httpapi"
	"deployment-tracker/internal/identity"
	"deployment-tracker/internal/metrics"
	"deployment-tracker/internal/migrations"
	"deployment-tracker/internal/ratelimit"
	"deployment-tracker/internal/reporting"
	"deployment-tracker/internal/sheets"
	"deployment-tracker/pkg/logger"
	"deployment-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		runner, err := migrations.New(db, log)
		if err == nil {
			err = runner.Up(rootCtx)
		}
		if err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	sheetClient, err := sheets.NewGoogleClient(rootCtx, sheets.GoogleConfig{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		CredentialsJSON: cfg.Sheets.CredentialsJSON,
	})
	if err != nil {
		log.Error("sheets init failed", "err", err)
		os.Exit(1)
	}

	store := deployments.NewStore(sheets.Instrument(sheetClient, m), deployments.Config{
		SheetName:   cfg.Sheets.SheetName,
		FormulaRows: sheets.NewFormulaRowMask(cfg.Sheets.FormulaDataRows()...),
	}, log.With("component", "deployments"))

	auditSvc := audit.NewService(audit.NewPostgresRepo(db), log.With("component", "audit"))
	accountSvc := accounts.NewService(
		accounts.NewPostgresRepo(db),
		identity.NewPostgresProvider(db, 0),
		auditSvc,
		log.With("component", "accounts"),
	)

	if cfg.Bootstrap.AdminEmail != "" {
		created, err := accountSvc.EnsureBootstrapAdmin(rootCtx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
		if err != nil {
			log.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}
		if created {
			log.Info("bootstrap admin created", "email", cfg.Bootstrap.AdminEmail)
		}
	}

	loginLimiter, err := ratelimit.NewRedisLimiter(rdb, "ratelimit:", cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	if err != nil {
		log.Error("rate limiter init failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{
		Auth:        authManager,
		Accounts:    accountSvc,
		Audit:       auditSvc,
		Deployments: store,
		Reports:     reporting.NewService(store),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())

	registerRoutes(r, routeDeps{
		handlers:   h,
		authMW:     auth.RequireAccessToken(authManager),
		loginLimit: ratelimit.Middleware(loginLimiter, "login", ratelimit.ByClientIP, m),
		gatherer:   reg,
		ready: func(ctx context.Context) error {
			if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
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
