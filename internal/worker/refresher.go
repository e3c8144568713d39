// Package worker runs the background refresh loops.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"github.com/custodia-labs/marketlens/internal/core/ports/driving"
)

// MacroRefreshLock is the lease name shared by every instance.
const MacroRefreshLock = "macro-refresh"

// DefaultMacroInterval matches the macro cache TTL.
const DefaultMacroInterval = 24 * time.Hour

// Refresher keeps the macro snapshot and the dataset current.
//
// The macro loop takes the macro-refresh lease with a TTL equal to its
// interval and never releases it, so across a deployment one instance
// refreshes per window and the rest read the shared snapshot.
type Refresher struct {
	macro  driving.MacroService
	market driving.MarketDataService
	lock   driven.DistributedLock
	logger *slog.Logger

	macroInterval  time.Duration
	reloadInterval time.Duration

	mu          sync.RWMutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	lastRefresh time.Time
	lastReload  time.Time
	lastErr     string
}

// RefresherConfig holds configuration for the refresher.
type RefresherConfig struct {
	Macro          driving.MacroService
	Market         driving.MarketDataService // Optional: nil disables dataset reloads
	Lock           driven.DistributedLock    // Optional: nil refreshes on every tick
	Logger         *slog.Logger
	MacroInterval  time.Duration // Default DefaultMacroInterval
	ReloadInterval time.Duration // 0 disables dataset reloads
}

// NewRefresher creates a refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.MacroInterval
	if interval <= 0 {
		interval = DefaultMacroInterval
	}
	return &Refresher{
		macro:          cfg.Macro,
		market:         cfg.Market,
		lock:           cfg.Lock,
		logger:         logger,
		macroInterval:  interval,
		reloadInterval: cfg.ReloadInterval,
	}
}

// Start launches the loops. It returns immediately; the loops run until
// Stop is called or ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("refresher starting",
		"macro_interval", r.macroInterval,
		"reload_interval", r.reloadInterval,
	)

	var wg sync.WaitGroup
	if r.macro != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, r.macroInterval, true, r.refreshMacro)
		}()
	}
	if r.market != nil && r.reloadInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, r.reloadInterval, false, r.reloadDataset)
		}()
	}

	go func() {
		wg.Wait()
		close(r.doneCh)
	}()
}

// Stop signals the loops and waits for them to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("refresher stopped")
}

// Wait blocks until the loops exit.
func (r *Refresher) Wait() {
	r.mu.RLock()
	done := r.doneCh
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (r *Refresher) loop(ctx context.Context, interval time.Duration, immediate bool, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		run(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (r *Refresher) refreshMacro(ctx context.Context) {
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, MacroRefreshLock, leaseTTL(r.macroInterval))
		if err != nil {
			r.logger.Warn("failed to acquire macro refresh lock", "error", err)
			r.recordErr(err)
			return
		}
		if !acquired {
			r.logger.Debug("macro refresh lease held elsewhere, skipping")
			return
		}
	}

	summary, err := r.macro.Refresh(ctx)
	if err != nil {
		r.logger.Error("macro refresh failed", "error", err)
		r.recordErr(err)
		// Free the lease so any instance can retry on its next tick.
		if r.lock != nil {
			if err := r.lock.Release(context.WithoutCancel(ctx), MacroRefreshLock); err != nil {
				r.logger.Warn("failed to release macro refresh lock", "error", err)
			}
		}
		return
	}

	r.mu.Lock()
	r.lastRefresh = time.Now()
	r.lastErr = ""
	r.mu.Unlock()
	r.logger.Info("macro refreshed", "indicators", len(summary))
}

// leaseTTL keeps the lease shorter than the tick so this instance's own
// lease has expired when its next tick arrives.
func leaseTTL(interval time.Duration) time.Duration {
	return interval - interval/10
}

func (r *Refresher) reloadDataset(ctx context.Context) {
	report, err := r.market.Reload(ctx)
	if err != nil {
		r.logger.Error("dataset reload failed", "error", err)
		r.recordErr(err)
		return
	}

	r.mu.Lock()
	r.lastReload = time.Now()
	r.mu.Unlock()
	if report != nil {
		r.logger.Info("dataset reloaded",
			"source", report.Source.Name,
			"rows", report.Rows,
			"degraded", report.Degraded(),
		)
	}
}

func (r *Refresher) recordErr(err error) {
	r.mu.Lock()
	r.lastErr = err.Error()
	r.mu.Unlock()
}

// Health is the refresher status.
type Health struct {
	Running     bool      `json:"running"`
	LockHealth  bool      `json:"lock_health"`
	LeaseHolder string    `json:"lease_holder,omitempty"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastReload  time.Time `json:"last_reload,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Health returns the refresher status and pings the lock backend.
func (r *Refresher) Health(ctx context.Context) Health {
	r.mu.RLock()
	h := Health{
		Running:     r.running,
		LastRefresh: r.lastRefresh,
		LastReload:  r.lastReload,
		Error:       r.lastErr,
		LockHealth:  true,
	}
	r.mu.RUnlock()

	if r.lock != nil {
		if err := r.lock.Ping(ctx); err != nil {
			h.LockHealth = false
			h.Error = err.Error()
			return h
		}
		holder, err := r.lock.Holder(ctx, MacroRefreshLock)
		if err != nil {
			r.logger.Warn("failed to read macro refresh lease holder", "error", err)
		}
		h.LeaseHolder = holder
	}
	return h
}
