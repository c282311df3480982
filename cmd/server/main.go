package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/api"
	"github.com/lalith-99/lingomatch/internal/config"
	"github.com/lalith-99/lingomatch/internal/db"
	"github.com/lalith-99/lingomatch/internal/observ"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository"
	"github.com/lalith-99/lingomatch/internal/repository/memory"
	"github.com/lalith-99/lingomatch/internal/repository/mongodb"
	"github.com/lalith-99/lingomatch/internal/repository/postgres"
	"github.com/lalith-99/lingomatch/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, health, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if store.Close != nil {
		defer store.Close()
	}

	notifier, closeNotifier, err := openNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	services := service.New(store, notifier, service.TokenConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.TokenTTL,
	}, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(services, api.RouterConfig{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Health:      health,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting LingoMatch",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	// Shutdown does not wait for hijacked WebSocket connections. They end
	// with the process.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return repository.Store{}, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return repository.Store{}, nil, fmt.Errorf("migrate database: %w", err)
		}
		store := postgres.NewStore(database.Pool())
		store.Close = database.Close
		return store, database.Health, nil

	case config.DriverMongo:
		mdb, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return repository.Store{}, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		if err := mdb.EnsureIndexes(ctx); err != nil {
			mdb.Close()
			return repository.Store{}, nil, fmt.Errorf("ensure mongodb indexes: %w", err)
		}
		return mdb.Store(), mdb.Health, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}
}

// openNotifier picks Redis pub/sub when REDIS_URL is set, so that several
// instances share change signals, and the in-process notifier otherwise.
func openNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (realtime.Notifier, func(), error) {
	if cfg.RedisURL == "" {
		return realtime.NewLocalNotifier(), func() {}, nil
	}

	client, err := realtime.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("redis notifier enabled", zap.String("prefix", cfg.RedisPrefix))
	return realtime.NewRedisNotifier(client, cfg.RedisPrefix, logger), func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis client", zap.Error(err))
		}
	}, nil
}
