// Package prices fetches daily adjusted-close price histories from the
// configured price source, which serves per-ticker CSV over HTTP.
package prices

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"factorlens/internal/config"
	apperrors "factorlens/internal/errors"
	"factorlens/pkg/contracts/domain"
)

// Client fetches price histories, rate limited across all callers
type Client struct {
	httpClient *http.Client
	cfg        config.PricesConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a price source client
func NewClient(cfg config.PricesConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger.With(slog.String("component", "price_client")),
	}
}

// DailyHistory fetches the adjusted-close series for one ticker over the
// given date range, in ascending date order.
func (c *Client) DailyHistory(ctx context.Context, symbol string, from, to time.Time) (domain.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		strings.TrimSuffix(c.cfg.BaseURL, "/"),
		url.QueryEscape(strings.ToLower(symbol)),
		from.Format("20060102"),
		to.Format("20060102"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("fetch prices for %s", symbol), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("price source returned status %d for %s", resp.StatusCode, symbol), nil)
	}

	series, err := parseDailyCSV(resp.Body)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("parse prices for %s", symbol), err)
	}

	c.logger.DebugContext(ctx, "price history fetched",
		slog.String("symbol", symbol),
		slog.Int("days", len(series)),
	)
	return series, nil
}

// DailyHistories fetches every ticker concurrently. All fetches share the
// client's rate limiter; any failure cancels the remaining fetches.
func (c *Client) DailyHistories(ctx context.Context, symbols []string, from, to time.Time) (map[string]domain.Series, error) {
	var mu sync.Mutex
	histories := make(map[string]domain.Series, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			series, err := c.DailyHistory(ctx, symbol, from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			histories[symbol] = series
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return histories, nil
}

// parseDailyCSV parses the Date,Open,High,Low,Close[,Volume] layout the
// price source serves, keeping the date and close columns.
func parseDailyCSV(r io.Reader) (domain.Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("price CSV has no data rows")
	}

	header := records[0]
	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "close", "adj close", "adjclose":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("price CSV missing date or close column: %v", header)
	}

	series := make(domain.Series, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) <= closeCol || len(record) <= dateCol {
			return nil, fmt.Errorf("line %d: short record", i+2)
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", i+2, err)
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(record[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse close: %w", i+2, err)
		}

		series = append(series, domain.SeriesPoint{Date: date, Value: close})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series, nil
}
