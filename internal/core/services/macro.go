package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"github.com/custodia-labs/marketlens/internal/core/ports/driving"
)

// Ensure MacroCache implements MacroService
var _ driving.MacroService = (*MacroCache)(nil)

const (
	DefaultMacroTTL        = 24 * time.Hour
	DefaultMacroRetryAfter = 5 * time.Minute
	DefaultMacroPeriods    = 5
	DefaultUpstreamTimeout = 10 * time.Second
)

// macroState is published as a whole; it is never modified after Store.
type macroState struct {
	snapshot domain.MacroSnapshot
	retryAt  time.Time // set after a refresh where every indicator failed
}

// MacroCache keeps the latest national indicator summary in memory.
// It refreshes when empty or older than the TTL. Concurrent refreshes
// collapse into one; a summary shared through the SummaryStore is adopted
// before the statistical API is called.
type MacroCache struct {
	fetcher    driven.IndicatorFetcher
	store      driven.SummaryStore
	indicators []domain.Indicator
	ttl        time.Duration
	retryAfter time.Duration
	periods    int
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger

	state atomic.Pointer[macroState]
	group singleflight.Group
}

// MacroCacheConfig holds configuration for the macro cache.
type MacroCacheConfig struct {
	Fetcher    driven.IndicatorFetcher
	Store      driven.SummaryStore // Optional: shares snapshots across instances
	Indicators []domain.Indicator  // Default: domain.DefaultIndicators()
	TTL        time.Duration       // Default: 24h
	RetryAfter time.Duration       // Wait after a total failure (default: 5m)
	Periods    int                 // Observations per indicator (default: 5)
	Timeout    time.Duration       // Per-indicator fetch timeout (default: 10s)
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewMacroCache creates an empty cache. Nothing is fetched until first use.
func NewMacroCache(cfg MacroCacheConfig) *MacroCache {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Indicators) == 0 {
		cfg.Indicators = domain.DefaultIndicators()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultMacroTTL
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultMacroRetryAfter
	}
	if cfg.Periods <= 0 {
		cfg.Periods = DefaultMacroPeriods
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &MacroCache{
		fetcher:    cfg.Fetcher,
		store:      cfg.Store,
		indicators: cfg.Indicators,
		ttl:        cfg.TTL,
		retryAfter: cfg.RetryAfter,
		periods:    cfg.Periods,
		timeout:    cfg.Timeout,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
}

// Summary returns the cached summary, refreshing it first when stale.
// Never fails: on error the previous (possibly empty) summary is returned.
func (c *MacroCache) Summary(ctx context.Context) domain.MacroSummary {
	if st := c.state.Load(); c.fresh(st) {
		return cloneSummary(st.snapshot.Summary)
	}
	if err := c.refresh(ctx, false); err != nil {
		c.logger.Warn("macro refresh failed, serving previous summary", "error", err)
	}
	if st := c.state.Load(); st != nil {
		return cloneSummary(st.snapshot.Summary)
	}
	return domain.MacroSummary{}
}

// SectorSeries returns the sector share-of-GDP trends in indicator order.
func (c *MacroCache) SectorSeries(ctx context.Context) []domain.SectorSeries {
	summary := c.Summary(ctx)
	out := make([]domain.SectorSeries, 0)
	for _, ind := range c.indicators {
		if !ind.Sector {
			continue
		}
		s, ok := summary[ind.Name]
		if !ok {
			continue
		}
		out = append(out, domain.SectorSeries{
			Name:  ind.Name,
			Label: domain.SectorLabel(ind.Name),
			Data:  s.Trend,
		})
	}
	return out
}

// Refresh fetches from the statistical API regardless of cache age.
func (c *MacroCache) Refresh(ctx context.Context) (domain.MacroSummary, error) {
	err := c.refresh(ctx, true)
	var summary domain.MacroSummary
	if st := c.state.Load(); st != nil {
		summary = cloneSummary(st.snapshot.Summary)
	}
	return summary, err
}

// Snapshot returns the cached snapshot without refreshing, or nil.
func (c *MacroCache) Snapshot() *domain.MacroSnapshot {
	st := c.state.Load()
	if st == nil {
		return nil
	}
	snap := st.snapshot
	snap.Summary = cloneSummary(snap.Summary)
	return &snap
}

func (c *MacroCache) fresh(st *macroState) bool {
	if st == nil {
		return false
	}
	now := c.now()
	if len(st.snapshot.Summary) > 0 && st.snapshot.Age(now) < c.ttl {
		return true
	}
	return !st.retryAt.IsZero() && now.Before(st.retryAt)
}

func (c *MacroCache) refresh(ctx context.Context, force bool) error {
	// The flight outlives any single caller; each fetch has its own timeout.
	ctx = context.WithoutCancel(ctx)
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		prev := c.state.Load()
		if !force && c.fresh(prev) {
			return nil, nil
		}
		if !force && c.adoptShared(ctx, prev) {
			return nil, nil
		}
		return nil, c.fetchAll(ctx, prev)
	})
	return err
}

// adoptShared publishes a fresh snapshot another instance already stored.
func (c *MacroCache) adoptShared(ctx context.Context, prev *macroState) bool {
	if c.store == nil {
		return false
	}
	loadCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	snap, err := c.store.Load(loadCtx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("summary store load failed", "error", err)
		}
		return false
	}
	if len(snap.Summary) == 0 || snap.Age(c.now()) >= c.ttl {
		return false
	}
	if prev != nil && !snap.FetchedAt.After(prev.snapshot.FetchedAt) {
		return false
	}

	c.state.Store(&macroState{snapshot: *snap})
	c.logger.Debug("adopted shared macro summary", "fetched_at", snap.FetchedAt)
	return true
}

func (c *MacroCache) fetchAll(ctx context.Context, prev *macroState) error {
	if c.fetcher == nil {
		return fmt.Errorf("no indicator fetcher: %w", domain.ErrServiceUnavailable)
	}

	var (
		mu      sync.Mutex
		summary = make(domain.MacroSummary, len(c.indicators))
		g       errgroup.Group
	)
	g.SetLimit(4)
	for _, ind := range c.indicators {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			series, err := c.fetcher.FetchSeries(fetchCtx, ind.Code, c.periods)
			if err != nil {
				c.logger.Warn("indicator fetch failed", "indicator", ind.Name, "code", ind.Code, "error", err)
				return nil
			}
			s, ok := domain.NewIndicatorSummary(series)
			if !ok {
				c.logger.Warn("indicator has no observations", "indicator", ind.Name, "code", ind.Code)
				return nil
			}
			mu.Lock()
			summary[ind.Name] = s
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	now := c.now()
	if len(summary) == 0 {
		next := &macroState{retryAt: now.Add(c.retryAfter)}
		if prev != nil {
			next.snapshot = prev.snapshot
		}
		c.state.Store(next)
		return fmt.Errorf("all %d indicators failed: %w", len(c.indicators), domain.ErrUpstreamService)
	}

	snap := domain.MacroSnapshot{Summary: summary, FetchedAt: now}
	c.state.Store(&macroState{snapshot: snap})
	c.logger.Info("macro summary refreshed", "indicators", len(summary), "tracked", len(c.indicators))

	if c.store != nil {
		saveCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := c.store.Save(saveCtx, &snap); err != nil {
			c.logger.Warn("summary store save failed", "error", err)
		}
	}
	return nil
}

func cloneSummary(s domain.MacroSummary) domain.MacroSummary {
	out := make(domain.MacroSummary, len(s))
	for k, v := range s {
		trend := make(domain.IndicatorSeries, len(v.Trend))
		copy(trend, v.Trend)
		v.Trend = trend
		out[k] = v
	}
	return out
}
