// Package sheets reads the remote market spreadsheet, either through the
// Google Sheets API with service-account credentials or, when that is not
// possible, through a publicly shared CSV export link.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/marketlens/internal/adapters/driven/csvfile"
	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

var _ driven.TableSource = (*Source)(nil)

// DefaultPriority puts the spreadsheet ahead of every local source.
const DefaultPriority = 100

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ErrNoAPIClient is returned by the API path when no credentials were given.
var ErrNoAPIClient = errors.New("no sheets api credentials")

// Config configures the spreadsheet source.
type Config struct {
	// Reference is a spreadsheet key or a docs.google.com URL
	Reference string

	// CredentialsFile is a service-account JSON key. Empty disables the API.
	CredentialsFile string

	// ClientOptions are appended when building the API client
	ClientOptions []option.ClientOption

	// HTTPClient is used for the public CSV export
	HTTPClient *http.Client

	Priority int
	Logger   *slog.Logger
}

// Source implements driven.TableSource for one spreadsheet.
type Source struct {
	ref        string
	opts       []option.ClientOption
	useAPI     bool
	httpClient *http.Client
	priority   int
	logger     *slog.Logger
}

// NewSource creates a spreadsheet source. Returns ErrInvalidInput when the
// reference is blank.
func NewSource(cfg Config) (*Source, error) {
	ref := strings.TrimSpace(cfg.Reference)
	if ref == "" {
		return nil, fmt.Errorf("sheets reference: %w", domain.ErrInvalidInput)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, cfg.ClientOptions...)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		ref:        ref,
		opts:       opts,
		useAPI:     len(opts) > 0,
		httpClient: httpClient,
		priority:   priority,
		logger:     logger,
	}, nil
}

func (s *Source) Name() string                { return "google-sheets" }
func (s *Source) Origin() domain.SourceOrigin { return domain.OriginRemote }
func (s *Source) Priority() int               { return s.priority }

// Fetch reads the first worksheet through the API. Authentication failures
// (no credentials, 401, 403) fall back to the public CSV export when the
// reference is a shared CSV link.
func (s *Source) Fetch(ctx context.Context) (*domain.RawTable, error) {
	table, err := s.fetchAPI(ctx)
	if err == nil {
		return table, nil
	}
	if !isAuthFailure(err) {
		return nil, err
	}
	if !IsPublicCSV(s.ref) {
		return nil, fmt.Errorf("sheets %s: %w", s.ref, err)
	}

	s.logger.Info("fetching public csv export", "reason", err.Error())
	return s.fetchCSV(ctx)
}

func (s *Source) fetchAPI(ctx context.Context) (*domain.RawTable, error) {
	if !s.useAPI {
		return nil, ErrNoAPIClient
	}
	id := SpreadsheetID(s.ref)
	if id == "" {
		return nil, ErrNoAPIClient
	}

	svc, err := sheetsapi.NewService(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w: %v", ErrNoAPIClient, err)
	}

	meta, err := svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", id, err)
	}
	if len(meta.Sheets) == 0 || meta.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("spreadsheet %s has no worksheets", id)
	}
	title := meta.Sheets[0].Properties.Title

	values, err := svc.Spreadsheets.Values.Get(id, title).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s!%s: %w", id, title, err)
	}
	return valuesToTable(values.Values)
}

func (s *Source) fetchCSV(ctx context.Context) (*domain.RawTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ref, nil)
	if err != nil {
		return nil, fmt.Errorf("csv export request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("csv export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("csv export: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return csvfile.ReadCSV(resp.Body)
}

func valuesToTable(values [][]interface{}) (*domain.RawTable, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("worksheet is empty: %w", domain.ErrSchemaMismatch)
	}
	header := cellsToStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rows = append(rows, cellsToStrings(row))
	}
	return domain.NewRawTable(header, rows), nil
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			out[i] = fmt.Sprint(c)
		}
	}
	return out
}

// SpreadsheetID extracts the key from a spreadsheet URL. A bare key is
// returned unchanged. Published links (/d/e/...) have no usable key.
func SpreadsheetID(ref string) string {
	if !strings.Contains(ref, "docs.google.com") {
		if strings.ContainsAny(ref, "/?") {
			return ""
		}
		return ref
	}
	m := spreadsheetIDPattern.FindStringSubmatch(ref)
	if m == nil || m[1] == "e" {
		return ""
	}
	return m[1]
}

// IsPublicCSV reports whether ref looks like a shared or published CSV link.
func IsPublicCSV(ref string) bool {
	return strings.Contains(ref, "docs.google.com") &&
		(strings.Contains(ref, "output=csv") || strings.Contains(ref, "format=csv"))
}

func isAuthFailure(err error) bool {
	if errors.Is(err, ErrNoAPIClient) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	return false
}
