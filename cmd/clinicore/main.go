package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/audit"
	audithttp "github.com/clinicore/clinicore/internal/audit/http"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/platform/cache"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/users"
)

// actorSource adapts the user directory to the authorization gate's
// view of an actor.
type actorSource struct {
	users *users.Service
}

func (a actorSource) FindActor(ctx context.Context, userID string) (*access.Actor, error) {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &access.Actor{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		RoleName: user.RoleName,
		IsActive: user.IsActive,
	}, nil
}

// actorDirectory adapts the user repository to the audit query's actor
// resolution.
type actorDirectory struct {
	users *users.Service
}

func (a actorDirectory) ListActors(ctx context.Context) ([]audit.Actor, error) {
	list, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	actors := make([]audit.Actor, 0, len(list))
	for _, u := range list {
		actors = append(actors, audit.Actor{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return actors, nil
}

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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "clinicore_session", cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()
	auditLoc := cfg.AuditLocation()

	accessRepo := access.NewPGRepository(dbpool)
	accessService := access.NewService(accessRepo, logger, metrics)
	gate := access.NewGate(accessRepo, logger)

	usersRepo := users.NewPGRepository(dbpool)
	usersService := users.NewService(usersRepo, accessRepo, logger, metrics)

	accessMW := access.Middleware{
		Gate:   gate,
		Actors: actorSource{users: usersService},
		Logger: logger,
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	auditRepo := audit.NewPGRepository(dbpool)
	auditService := audit.NewService(auditRepo, actorDirectory{users: usersService}, auditLoc)
	auditHandler := audithttp.NewHandler(logger, auditService, auditLoc)

	rolesHandler := access.NewHandler(logger, accessService, accessMW)
	usersHandler := users.NewHandler(logger, usersService, accessMW)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		AuthHandler:    authHandler,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		AuditHandler:   auditHandler,
		AccessMW:       accessMW,
		Metrics:        metrics,
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
