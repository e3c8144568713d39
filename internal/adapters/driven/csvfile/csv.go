// Package csvfile provides the local table sources: wide and long-format CSV
// files from the data directory, and the built-in table used when nothing
// else loads.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

// Priorities below the remote spreadsheet, in resolution order.
const (
	LongPriority    = 50
	WidePriority    = 40
	BuiltinPriority = 0
)

// ReadCSV parses CSV with a header row into a RawTable.
// Ragged rows are padded or truncated to the header width.
func ReadCSV(r io.Reader) (*domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: %w", domain.ErrSchemaMismatch)
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return domain.NewRawTable(header, records[1:]), nil
}

func readFile(path string) (*domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// IsLongFormat reports whether a file name follows the long-format
// convention.
func IsLongFormat(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "complex")
}

// Discover lists the CSV files in dir as table sources: long-format files
// first, then wide files, each group in name order. A missing directory
// yields no sources.
func Discover(dir string, filter SectorFilter) ([]driven.TableSource, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var long, wide []driven.TableSource
	for _, name := range names {
		path := filepath.Join(dir, name)
		if IsLongFormat(path) {
			long = append(long, NewLongSource(path, filter))
		} else {
			wide = append(wide, NewWideSource(path))
		}
	}
	return append(long, wide...), nil
}
