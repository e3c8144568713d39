package csvfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

var _ driven.TableSource = (*WideSource)(nil)

// WideSource reads a one-row-per-district CSV file as-is.
type WideSource struct {
	path string
}

// NewWideSource creates a wide-format file source
func NewWideSource(path string) *WideSource {
	return &WideSource{path: path}
}

func (s *WideSource) Name() string                { return "csv:" + filepath.Base(s.path) }
func (s *WideSource) Origin() domain.SourceOrigin { return domain.OriginLocal }
func (s *WideSource) Priority() int               { return WidePriority }

// Fetch reads the file.
func (s *WideSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := readFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return table, nil
}
