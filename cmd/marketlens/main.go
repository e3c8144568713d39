package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/marketlens/internal/adapters/driven/ai"
	"github.com/custodia-labs/marketlens/internal/adapters/driven/csvfile"
	"github.com/custodia-labs/marketlens/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/marketlens/internal/adapters/driven/redis"
	"github.com/custodia-labs/marketlens/internal/adapters/driven/sheets"
	"github.com/custodia-labs/marketlens/internal/adapters/driven/worldbank"
	"github.com/custodia-labs/marketlens/internal/adapters/driving/cli"
	"github.com/custodia-labs/marketlens/internal/config"
	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"github.com/custodia-labs/marketlens/internal/core/services"
	"github.com/custodia-labs/marketlens/internal/normalisers"
	"github.com/custodia-labs/marketlens/internal/runtime"
	"github.com/custodia-labs/marketlens/internal/worker"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

// bootstrap wires every adapter and service for one invocation.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if opts.Verbose {
		log.Printf("marketlens %s starting", version)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// ===== Shared state (optional) =====
	store, lock, summaryBackend, lockBackend := connectShared(ctx, cfg, logger, &closers)

	// ===== Dataset =====
	var sources []driven.TableSource
	if cfg.Sheet.ID != "" {
		src, err := sheets.NewSource(sheets.Config{
			Reference:       cfg.Sheet.ID,
			CredentialsFile: cfg.Sheet.CredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			logger.Warn("spreadsheet source disabled", "error", err)
		} else {
			sources = append(sources, src)
		}
	}
	local, err := csvfile.Discover(cfg.Data.Dir, csvfile.SectorFilter(cfg.Data.Sectors))
	if err != nil {
		logger.Warn("local data directory unreadable", "dir", cfg.Data.Dir, "error", err)
	}
	sources = append(sources, local...)
	sources = append(sources, csvfile.NewBuiltinSource())

	resolver := services.NewSourceResolver(services.SourceResolverConfig{
		Sources:    sources,
		Normaliser: normalisers.DefaultPipeline(normalisers.Config{Seed: cfg.Data.SynthSeed, Logger: logger}),
		Logger:     logger,
	})
	catalog := services.NewCatalog(services.CatalogConfig{Loader: resolver, Logger: logger})
	report, err := catalog.Reload(ctx)
	if err != nil {
		cleanup()
		if errors.Is(err, domain.ErrConfigurationFatal) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrConfigurationFatal, err)
	}
	logger.Debug("dataset loaded",
		"source", report.Source.Name,
		"rows", report.Rows,
		"synthesized", report.Synthesized,
		"coerced_cells", report.CoercedCells,
	)

	// ===== Macro indicators =====
	macro := services.NewMacroCache(services.MacroCacheConfig{
		Fetcher: worldbank.NewClient(worldbank.Config{
			BaseURL:           cfg.Macro.BaseURL,
			Country:           cfg.Macro.Country,
			RequestsPerSecond: cfg.Macro.RatePerSec,
		}),
		Store:      store,
		Indicators: cfg.Macro.Indicators,
		TTL:        cfg.Macro.TTL.Duration,
		RetryAfter: cfg.Macro.RetryAfter.Duration,
		Periods:    cfg.Macro.Periods,
		Timeout:    cfg.UpstreamTimeout.Duration,
		Logger:     logger,
	})

	// ===== Generator =====
	rt := runtime.NewServices(domain.NewRuntimeConfig(summaryBackend, lockBackend))
	closers = append(closers, func() { _ = rt.Close() })

	gen, err := ai.NewGenerator(ctx, ai.Settings{
		Provider: ai.Provider(cfg.Generator.Provider),
		APIKey:   cfg.Generator.APIKey,
		Model:    cfg.Generator.Model,
	})
	switch {
	case err != nil:
		logger.Warn("generator disabled", "error", err)
	case gen == nil:
		logger.Debug("no generator configured, answers will degrade")
	default:
		if err := rt.ValidateAndSetGenerator(ctx, gen); err != nil {
			logger.Warn("generator unavailable", "model", gen.Model(), "error", err)
		}
	}

	orchestrator := services.NewQueryOrchestrator(services.QueryOrchestratorConfig{
		Services: rt,
		Macro:    macro,
		Market:   catalog,
		Timeout:  cfg.UpstreamTimeout.Duration,
		Logger:   logger,
	})

	refresher := worker.NewRefresher(worker.RefresherConfig{
		Macro:          macro,
		Market:         catalog,
		Lock:           lock,
		Logger:         logger,
		MacroInterval:  cfg.Macro.TTL.Duration,
		ReloadInterval: cfg.Data.ReloadInterval.Duration,
	})

	return &cli.Services{
		Query:     orchestrator,
		Market:    catalog,
		Macro:     macro,
		Refresher: refresher,
	}, cleanup, nil
}

// connectShared opens Redis, else PostgreSQL, for the macro snapshot and
// the refresh lease. Connection failures degrade to process-local state.
func connectShared(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *[]func()) (driven.SummaryStore, driven.DistributedLock, string, string) {
	if cfg.Storage.RedisURL != "" {
		client, err := redisadapter.Connect(ctx, cfg.Storage.RedisURL)
		if err == nil {
			*closers = append(*closers, func() { _ = client.Close() })
			logger.Debug("redis connected")
			return redisadapter.NewSummaryStore(client, 2*cfg.Macro.TTL.Duration), redisadapter.NewLeaseLock(client), "redis", "redis"
		}
		logger.Warn("redis unavailable", "error", err)
	}

	if cfg.Storage.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Storage.DatabaseURL))
		if err == nil {
			if err = db.InitSchema(ctx); err == nil {
				*closers = append(*closers, func() { _ = db.Close() })
				logger.Debug("postgres connected")
				return postgres.NewSummaryStore(db), postgres.NewLeaseLock(db), "postgres", "postgres"
			}
			_ = db.Close()
		}
		logger.Warn("postgres unavailable", "error", err)
	}

	return nil, nil, "memory", "none"
}
