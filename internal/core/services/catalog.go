package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driving"
	"github.com/custodia-labs/marketlens/internal/search"
)

// Ensure Catalog implements MarketDataService
var _ driving.MarketDataService = (*Catalog)(nil)

// DatasetLoader produces a normalised dataset. SourceResolver is the
// production implementation.
type DatasetLoader interface {
	Load(ctx context.Context) (*domain.Dataset, *domain.NormaliseReport, error)
}

// CatalogSnapshot is a dataset with the index built from it.
// The two are always published together.
type CatalogSnapshot struct {
	Dataset *domain.Dataset
	Index   *search.Index
	Report  *domain.NormaliseReport
}

// Catalog owns the published micro dataset. Reloads build a complete
// snapshot off to the side and swap it in atomically; readers never see a
// dataset paired with an index from another build.
type Catalog struct {
	loader  DatasetLoader
	logger  *slog.Logger
	current atomic.Pointer[CatalogSnapshot]
	group   singleflight.Group
}

// CatalogConfig holds configuration for the catalog.
type CatalogConfig struct {
	Loader DatasetLoader
	Logger *slog.Logger
}

// NewCatalog creates an empty catalog. Call Reload before serving.
func NewCatalog(cfg CatalogConfig) *Catalog {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		loader: cfg.Loader,
		logger: logger,
	}
}

// Reload rebuilds the dataset and index. Concurrent callers share one build.
// A caller whose context ends stops waiting; the build itself runs on and
// is published for the others. On failure the previous snapshot stays published.
func (c *Catalog) Reload(ctx context.Context) (*domain.NormaliseReport, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan("reload", func() (any, error) {
		ds, report, err := c.loader.Load(shared)
		if err != nil {
			return nil, err
		}
		snap := &CatalogSnapshot{Dataset: ds, Index: search.Build(ds), Report: report}
		if ixErr := snap.Index.Err(); ixErr != nil {
			c.logger.Warn("search index unavailable, using keyword search", "error", ixErr)
		}
		c.current.Store(snap)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("reload catalog: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("reload catalog: %w", res.Err)
		}
		return res.Val.(*CatalogSnapshot).Report, nil
	}
}

// Publish swaps in a dataset built elsewhere (tests, warm starts).
func (c *Catalog) Publish(ds *domain.Dataset, report *domain.NormaliseReport) {
	c.current.Store(&CatalogSnapshot{Dataset: ds, Index: search.Build(ds), Report: report})
}

// Snapshot returns the published snapshot, or nil before the first load.
func (c *Catalog) Snapshot() *CatalogSnapshot {
	return c.current.Load()
}

func (c *Catalog) snapshot() (*CatalogSnapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("catalog not loaded: %w", domain.ErrServiceUnavailable)
	}
	return snap, nil
}

// Filter returns copies of matching records in dataset order.
func (c *Catalog) Filter(ctx context.Context, filters domain.FilterSet) ([]domain.Record, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return FilterRecords(snap.Dataset, filters), nil
}

// Search queries the published index.
func (c *Catalog) Search(ctx context.Context, query string, topK int) (*domain.SearchResult, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	result := snap.Index.Query(query, topK)
	return &result, nil
}

// Districts returns sorted unique non-empty district names.
func (c *Catalog) Districts(ctx context.Context) ([]string, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	districts := make([]string, 0)
	for _, r := range snap.Dataset.Records {
		d := strings.TrimSpace(r.District)
		if d != "" && !seen[d] {
			seen[d] = true
			districts = append(districts, d)
		}
	}
	sort.Strings(districts)
	return districts, nil
}

// Hierarchy returns the explorer tree for the published dataset.
// Before the first load only the macro node is returned.
func (c *Catalog) Hierarchy(ctx context.Context) ([]domain.HierarchyNode, error) {
	var ds *domain.Dataset
	if snap := c.current.Load(); snap != nil {
		ds = snap.Dataset
	}
	return domain.BuildHierarchy(ds), nil
}
