package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aquarium/internal/api"
	"aquarium/internal/cache"
	"aquarium/internal/config"
	"aquarium/internal/db"
	"aquarium/internal/game"
	"aquarium/internal/lifecycle"
	"aquarium/internal/species"
	"aquarium/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	catalog, err := species.Load(cfg.CatalogFile)
	if err != nil {
		logger.Error("load species catalog failed", "err", err, "file", cfg.CatalogFile)
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store failed", "err", err, "store", cfg.Store)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	chain, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	engine := lifecycle.New(catalog, lifecycle.Config{
		InactiveMultiplier: cfg.InactiveHungerMultiplier,
		DayStartHour:       cfg.DayStartHour,
		DayEndHour:         cfg.DayEndHour,
	})
	gameSvc := game.NewService(st, engine, logger,
		game.WithCache(chain, cfg.CacheTTL),
		game.WithWorld(game.World{Width: cfg.WorldWidth, Height: cfg.WorldHeight}),
	)

	server := api.New(cfg, logger, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("aquarium api listening",
		"addr", cfg.Addr,
		"store", st.Backend(),
		"species", catalog.Len(),
		"cache", chain.Names(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) (store.Store, error) {
	if cfg.Store == config.StorePostgres {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool, logger), nil
	}
	conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return store.NewSQLite(conn, logger), nil
}

// buildCache returns an empty chain when caching is disabled. An unreachable
// Redis is left out rather than failing startup.
func buildCache(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) (*cache.Chain, func()) {
	if cfg.CacheTTL <= 0 {
		return cache.NewChain(logger), func() {}
	}
	var providers []cache.Provider
	lru, err := cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		logger.Warn("lru cache disabled", "err", err)
	} else {
		providers = append(providers, lru)
	}

	closeFn := func() {}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("redis cache disabled", "err", err)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := rc.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warn("redis unreachable, continuing without it", "err", err)
				_ = rc.Close()
			} else {
				providers = append(providers, rc)
				closeFn = func() { _ = rc.Close() }
			}
		}
	}
	return cache.NewChain(logger, providers...), closeFn
}
