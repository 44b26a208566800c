// Package main is the entry point for the classroom reward engine.
//
// The engine converts merit points from the external stat tracker into
// draw tickets, runs weighted gacha draws over a rarity-tiered catalog,
// and records every balance change in an append-only ledger.
//
// The layout follows Clean Architecture and DDD:
// - Domain: accrual, rarity resolution, pity, and duplicate rules
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: PostgreSQL ledger, Redis snapshot cache, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/classdeck/reward-engine/config"
	"github.com/classdeck/reward-engine/internal/application/command"
	"github.com/classdeck/reward-engine/internal/application/query"
	"github.com/classdeck/reward-engine/internal/domain/reward"
	"github.com/classdeck/reward-engine/internal/domain/shared"
	"github.com/classdeck/reward-engine/internal/infrastructure/messaging"
	"github.com/classdeck/reward-engine/internal/infrastructure/persistence/postgres"
	"github.com/classdeck/reward-engine/internal/infrastructure/persistence/projections"
	"github.com/classdeck/reward-engine/internal/infrastructure/persistence/redis"
	httpserver "github.com/classdeck/reward-engine/internal/interface/http"
	"github.com/classdeck/reward-engine/pkg/logger"
	"github.com/classdeck/reward-engine/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting reward engine",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REWARD TABLES (catalog, weights, pity, duplicate bonuses)
	// ─────────────────────────────────────────────────────────────────────────
	tables, err := config.LoadRewardTables(cfg.Rewards.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load reward tables: %w", err)
	}
	log.Info("reward tables loaded",
		logger.String("path", cfg.Rewards.ConfigPath),
		logger.Int("catalog_size", tables.Catalog.Size()),
		logger.Int("pity_rules", len(tables.PityRules)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	var dbConn *postgres.Connection
	err = retry.DatabaseRetrier().Do(ctx, func(ctx context.Context) error {
		conn, connErr := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolSettings{
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		})
		if connErr != nil {
			// The database may still be starting alongside the engine.
			return retry.Retryable(connErr)
		}
		dbConn = conn
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REDIS (optional snapshot cache)
	// ─────────────────────────────────────────────────────────────────────────
	var accountCache reward.Cache
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			accountCache = redis.NewAccountCache(redisCache, cfg.Redis.AccountCacheTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES AND LEDGER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing persistence layer")
	accountRepo := postgres.NewAccountRepo(dbConn)
	ledgerRepo := postgres.NewLedgerRepo(dbConn)

	ledger, err := postgres.NewLedgerService(dbConn, cfg.Rewards.AccrualThreshold, cfg.Rewards.MaxCommitRetries)
	if err != nil {
		return fmt.Errorf("failed to create ledger service: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = slogger
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	statsView := projections.NewDrawStatsView()
	for _, eventType := range []shared.EventType{
		shared.EventDrawCommitted,
		shared.EventDrawRejected,
		shared.EventPityTriggered,
		shared.EventTicketsCredited,
	} {
		if err := eventBus.Subscribe(eventType, statsView.HandleEvent); err != nil {
			return fmt.Errorf("failed to subscribe stats view: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer")

	awardPointsCmd := command.NewAwardMeritPointsHandler(ledger, accountCache, eventBus)
	requestDrawCmd := command.NewRequestDrawHandler(ledger, accountCache, eventBus,
		command.RequestDrawHandlerConfig{
			Catalog:    tables.Catalog,
			Weights:    tables.Weights,
			PityRules:  tables.PityRules,
			Duplicates: tables.Duplicates,
			DrawCost:   cfg.Rewards.DrawCost,
		})

	getAccountQuery := query.NewGetAccountHandler(accountRepo, accountCache, tables.Catalog,
		cfg.Rewards.AccrualThreshold, cfg.Redis.AccountCacheTTL)
	getLedgerQuery := query.NewGetLedgerHandler(ledgerRepo, accountRepo, tables.Catalog)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout

	healthCheckers := map[string]httpserver.HealthChecker{
		"postgres": healthFunc(dbConn.Ping),
	}
	if redisCache != nil {
		healthCheckers["redis"] = healthFunc(redisCache.Ping)
	}

	httpDeps := httpserver.Dependencies{
		AwardPointsHandler: awardPointsCmd,
		RequestDrawHandler: requestDrawCmd,
		GetAccountHandler:  getAccountQuery,
		GetLedgerHandler:   getLedgerQuery,
		DrawStats:          statsView,
		Logger:             log,
		HealthCheckers:     healthCheckers,
	}

	server := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. START AND GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("reward engine is running", logger.String("http_address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown",
		logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}

// setupSlog configures the slog logger used by infrastructure components.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// healthFunc adapts a health method to the HealthChecker interface.
type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }
