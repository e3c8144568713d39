// Package worldbank fetches national indicator series from the World Bank
// v2 REST API.
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"golang.org/x/time/rate"
)

var _ driven.IndicatorFetcher = (*Client)(nil)

const (
	DefaultBaseURL = "https://api.worldbank.org/v2"
	DefaultCountry = "egy"

	// DefaultRequestsPerSecond stays well under the API's informal limit.
	DefaultRequestsPerSecond = 4.0
)

// Config configures the API client.
type Config struct {
	BaseURL           string
	Country           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client implements driven.IndicatorFetcher.
type Client struct {
	baseURL    string
	country    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a World Bank client. Zero fields take defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		country:    cfg.Country,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

type observation struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type apiMessage struct {
	Message []struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"message"`
}

// FetchSeries returns the latest periods non-null observations for code,
// rounded to two decimals and ascending by year.
func (c *Client) FetchSeries(ctx context.Context, code string, periods int) (domain.IndicatorSeries, error) {
	if code == "" || periods <= 0 {
		return nil, fmt.Errorf("fetch series: %w", domain.ErrInvalidInput)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/country/%s/indicator/%s?format=json&per_page=%d",
		c.baseURL, url.PathEscape(c.country), url.PathEscape(code), periods)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %v", code, domain.ErrUpstreamService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", code, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: status %d", code, domain.ErrUpstreamService, resp.StatusCode)
	}
	return parseSeries(code, body)
}

// parseSeries decodes the [meta, [observations]] envelope.
func parseSeries(code string, body []byte) (domain.IndicatorSeries, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", code, domain.ErrUpstreamService, err)
	}
	if len(envelope) == 0 {
		return nil, fmt.Errorf("decode %s: %w: empty response", code, domain.ErrUpstreamService)
	}
	if len(envelope) < 2 {
		var msg apiMessage
		if json.Unmarshal(envelope[0], &msg) == nil && len(msg.Message) > 0 {
			return nil, fmt.Errorf("fetch %s: %w: %s", code, domain.ErrUpstreamService, msg.Message[0].Value)
		}
		return domain.IndicatorSeries{}, nil
	}

	var rows []observation
	if err := json.Unmarshal(envelope[1], &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", code, domain.ErrUpstreamService, err)
	}

	series := make(domain.IndicatorSeries, 0, len(rows))
	for _, row := range rows {
		if row.Value == nil || math.IsNaN(*row.Value) {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row.Date))
		if err != nil {
			continue
		}
		series = append(series, domain.Observation{Year: year, Value: round2(*row.Value)})
	}
	return series.Sorted(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
