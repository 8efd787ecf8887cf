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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-accounts/internal/activity"
	activityhttp "github.com/odyssey-erp/odyssey-accounts/internal/activity/http"
	"github.com/odyssey-erp/odyssey-accounts/internal/app"
	"github.com/odyssey-erp/odyssey-accounts/internal/auth"
	"github.com/odyssey-erp/odyssey-accounts/internal/observability"
	"github.com/odyssey-erp/odyssey-accounts/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	rbachttp "github.com/odyssey-erp/odyssey-accounts/internal/rbac/http"
	"github.com/odyssey-erp/odyssey-accounts/internal/roles"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/users"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
	"github.com/odyssey-erp/odyssey-accounts/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.RememberTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	policy := rbac.NewPolicy(cfg.AdminRoleID)

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	usersService := users.NewService(users.NewRepository(dbpool))
	rolesService := roles.NewService(roles.NewRepository(dbpool))
	usersHandler := users.NewHandler(logger, usersService, rolesService, templates, csrfManager,
		rbac.Guard{Targets: usersService, Logger: logger})

	activityService := activity.NewService(activity.NewRepository(dbpool), metrics)
	activityHandler := activityhttp.NewHandler(logger, activityService, templates, csrfManager,
		rbac.Guard{Logger: logger, DeniedRedirect: "/users/"})

	permissionsHandler := rbachttp.NewPermissionsHandler(logger, templates, csrfManager, auth.RequireAuthenticated)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	if _, err := jobClient.EnqueueSessionCleanup(ctx, "startup"); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Warn("enqueue session cleanup", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		Pool:           dbpool,
		Policy:         policy,
		Identity:       authService,
		Activity:       activityService,
		Health: map[string]app.Pinger{
			"postgres": app.PingerFunc(dbpool.Ping),
			"redis": app.PingerFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		ActivityHandler:    activityHandler,
		PermissionsHandler: permissionsHandler,
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
