package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduguide/backend/docs"
	"github.com/eduguide/backend/internal/audit"
	"github.com/eduguide/backend/internal/cache"
	"github.com/eduguide/backend/internal/config"
	"github.com/eduguide/backend/internal/database"
	"github.com/eduguide/backend/internal/handlers"
	mW "github.com/eduguide/backend/internal/middleware"
	"github.com/eduguide/backend/internal/notifications"
	"github.com/eduguide/backend/internal/repositories"
	"github.com/eduguide/backend/internal/security"
	"github.com/eduguide/backend/internal/services"
	"go.uber.org/zap"
)

// @title EduGuide Backend API
// @version 1.0
// @description Accounts, authentication and profiles for the EduGuide career guidance platform
// @host localhost:5000
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	docs.SwaggerInfo.Title = "EduGuide Backend API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
	docs.SwaggerInfo.BasePath = "/api"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	ctx := context.Background()

	accounts, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open account store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer closeStore()

	redisClient := database.OpenRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	hasher, err := security.NewPasswordHasher(security.HashConfig{
		Algorithm:        cfg.Hashing.Algorithm,
		BcryptCost:       cfg.Hashing.BcryptCost,
		Argon2Time:       cfg.Hashing.Argon2Time,
		Argon2Memory:     cfg.Hashing.Argon2Memory,
		Argon2Threads:    cfg.Hashing.Argon2Threads,
		Argon2KeyLength:  cfg.Hashing.Argon2KeyLength,
		Argon2SaltLength: cfg.Hashing.Argon2SaltLength,
	})
	if err != nil {
		logger.Fatal("invalid hashing config", zap.Error(err))
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}
	var mailer notifications.Mailer = notifications.NewLogMailer(renderer, logger)
	if cfg.SMTP.Enabled() {
		mailer = notifications.NewSMTPMailer(cfg.SMTP, renderer)
	} else {
		logger.Warn("SMTP is not configured, emails will only be logged")
	}

	tokens := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	revocations := cache.NewRevocationList(redisClient)

	deps := services.Dependencies{
		Accounts:    accounts,
		Hasher:      hasher,
		Tokens:      tokens,
		TOTP:        security.NewTOTP(cfg.Auth.TOTPIssuer, cfg.Auth.TOTPSkew),
		Revocations: revocations,
		Mailer:      mailer,
		SMS:         notifications.NewLogSMSSender(logger),
		Policy:      cfg.Auth,
		FrontendURL: cfg.FrontendURL,
		Audit:       audit.NewLogger(logger),
		Logger:      logger,
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(services.NewAuthService(deps), services.NewPasswordResetService(deps), logger),
		Links:          handlers.NewLinkHandler(services.NewLinkService(deps), logger),
		Profiles:       handlers.NewProfileHandler(services.NewProfileService(deps), logger),
		Authenticator:  mW.NewAuthenticator(tokens, revocations, accounts, logger),
		APILimiter:     cache.NewRateLimiter(redisClient, "api", cfg.RateLimit.Requests, cfg.RateLimit.Window),
		AuthLimiter:    cache.NewRateLimiter(redisClient, "auth", cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow),
		TrustedProxies: cfg.Server.TrustedProxies,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Environment:    cfg.Environment,
		StaticDir:      cfg.Server.StaticDir,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// openStore picks the account backend named by DATABASE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.AccountRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}
		return repositories.NewPostgresAccountRepository(db), func() { db.Close() }, nil

	case config.DriverMongo:
		client, db, err := database.OpenMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewMongoAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		logger.Warn("using in-memory account store, data is lost on restart")
		return repositories.NewMemoryAccountRepository(), func() {}, nil
	}
}
