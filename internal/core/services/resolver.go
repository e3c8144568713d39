package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

// SourceResolver tries table sources in priority order; the first success wins.
type SourceResolver struct {
	sources    []driven.TableSource
	normaliser driven.Normaliser
	logger     *slog.Logger
}

// SourceResolverConfig holds configuration for the resolver.
type SourceResolverConfig struct {
	Sources    []driven.TableSource
	Normaliser driven.Normaliser // Required by Load
	Logger     *slog.Logger
}

// NewSourceResolver creates a resolver. Sources are ordered by descending
// priority; equal priorities keep their configured order.
func NewSourceResolver(cfg SourceResolverConfig) *SourceResolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sources := make([]driven.TableSource, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s != nil {
			sources = append(sources, s)
		}
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() > sources[j].Priority()
	})

	return &SourceResolver{
		sources:    sources,
		normaliser: cfg.Normaliser,
		logger:     logger,
	}
}

// Sources returns the source names in resolution order.
func (r *SourceResolver) Sources() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first non-empty raw table.
func (r *SourceResolver) Resolve(ctx context.Context) (*domain.RawTable, domain.SourceInfo, error) {
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, domain.SourceInfo{}, err
		}
		table, err := r.fetch(ctx, src)
		if err != nil {
			continue
		}
		return table, infoOf(src), nil
	}
	return nil, domain.SourceInfo{}, domain.ErrConfigurationFatal
}

// Load resolves and normalises. A table that fails normalisation degrades
// to the next source just like a failed fetch.
func (r *SourceResolver) Load(ctx context.Context) (*domain.Dataset, *domain.NormaliseReport, error) {
	if r.normaliser == nil {
		return nil, nil, fmt.Errorf("resolver has no normaliser: %w", domain.ErrServiceUnavailable)
	}

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		table, err := r.fetch(ctx, src)
		if err != nil {
			continue
		}

		info := infoOf(src)
		ds, report, err := r.normaliser.Normalise(table, info)
		if err != nil {
			r.logger.Warn("source rejected by normaliser", "source", info.Name, "error", err)
			continue
		}

		r.logger.Info("dataset loaded",
			"source", info.Name,
			"origin", info.Origin,
			"rows", ds.Len(),
			"synthesized", report.Synthesized)
		return ds, report, nil
	}
	return nil, nil, domain.ErrConfigurationFatal
}

func (r *SourceResolver) fetch(ctx context.Context, src driven.TableSource) (*domain.RawTable, error) {
	table, err := src.Fetch(ctx)
	if err == nil && table.IsEmpty() {
		err = fmt.Errorf("%s returned no rows: %w", src.Name(), domain.ErrSourceUnavailable)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		r.logger.Warn("source unavailable, trying next", "source", src.Name(), "error", err)
		return nil, err
	}
	return table, nil
}

func infoOf(src driven.TableSource) domain.SourceInfo {
	return domain.SourceInfo{Name: src.Name(), Origin: src.Origin()}
}
