package app

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

	"go-users-api/internal/config"
	"go-users-api/internal/database"
	"go-users-api/internal/handler"
	"go-users-api/internal/logger"
	"go-users-api/internal/metrics"
	"go-users-api/internal/middleware"
	"go-users-api/internal/repository"
	"go-users-api/internal/router"
	"go-users-api/internal/security"
	"go-users-api/internal/service"
)

type App struct {
	server          *http.Server
	shutdownTimeout time.Duration
	cleanupFuncs    []func()
}

type stores struct {
	users  service.UserStore
	tokens service.RefreshTokenStore
	audit  service.AuditStore
	db     *database.DB
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	closeDB := func() {
		if st.db != nil {
			st.db.Close()
		}
	}

	issuer, err := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	appMetrics := metrics.New()

	authService := service.NewAuthService(st.users, st.tokens, newHasher(cfg), issuer)
	authService.SetMetrics(appMetrics)
	userService := service.NewUserService(st.users, authService)
	auditService := service.NewAuditService(st.audit)

	authMiddleware := middleware.NewAuthMiddleware(issuer, cfg.OwnershipBypassRoles...)

	var pinger handler.Pinger
	if st.db != nil {
		pinger = st.db
	}

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth: handler.NewAuthHandler(authService, userService, auditService, handler.RefreshCookie{
			Name:   cfg.RefreshCookieName,
			Path:   cfg.RefreshCookiePath,
			Secure: cfg.RefreshCookieSecure,
		}),
		User:   handler.NewUserHandler(userService, auditService),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(pinger),
	}, appMetrics)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go authService.StartCleanupTicker(cleanupCtx, cfg.TokenCleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		ReadTimeout:       cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		cleanupFuncs: []func(){
			cleanupCancel,
			closeDB,
		},
	}, nil
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory stores; data is lost on restart")
		return stores{
			users:  repository.NewMemoryUserStore(),
			tokens: repository.NewMemoryTokenStore(),
			audit:  repository.NewMemoryAuditStore(),
		}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, database.Options{
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		ConnectRetries: cfg.DBConnectTries,
		ConnectBackoff: cfg.DBConnectBackoff,
	})
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	return stores{
		users:  repository.NewUserRepository(db.Pool),
		tokens: repository.NewTokenRepository(db.Pool),
		audit:  repository.NewAuditRepository(db.Pool),
		db:     db,
	}, nil
}

func newHasher(cfg *config.Config) security.PasswordHasher {
	if cfg.PasswordHasher == config.HasherBcrypt {
		return security.NewBcryptHasher(cfg.BcryptCost)
	}

	params := security.DefaultArgon2Params()
	params.Time = cfg.Argon2Time
	params.Memory = cfg.Argon2MemoryKB
	params.Threads = cfg.Argon2Threads
	return security.NewArgon2idHasher(params)
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
