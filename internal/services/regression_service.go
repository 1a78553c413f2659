package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"factorlens/internal/config"
	apierrors "factorlens/internal/errors"
	"factorlens/internal/factors"
	"factorlens/internal/infrastructure"
	"factorlens/internal/regression"
	"factorlens/internal/returns"
	ws "factorlens/internal/websocket"
	"factorlens/pkg/contracts/domain"
	"factorlens/pkg/contracts/events"
)

// PriceSource fetches daily close histories for a set of symbols
type PriceSource interface {
	DailyHistories(ctx context.Context, symbols []string, from, to time.Time) (map[string]domain.Series, error)
}

// FactorSource fetches the parsed factor file
type FactorSource interface {
	Fetch(ctx context.Context) (*factors.FactorSet, error)
}

// RegressionService runs rolling factor regressions and caches the latest
// completed run for the chart endpoints.
type RegressionService struct {
	cfg     *config.Config
	prices  PriceSource
	factors FactorSource
	engine  *regression.Engine
	hub     *ws.Hub
	metrics *infrastructure.Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	latestRun *domain.RegressionRun
}

// NewRegressionService creates a regression service. Hub and metrics may be
// nil, in which case broadcasting and instrumentation are skipped.
func NewRegressionService(
	cfg *config.Config,
	priceSource PriceSource,
	factorSource FactorSource,
	engine *regression.Engine,
	hub *ws.Hub,
	metrics *infrastructure.Metrics,
	logger *slog.Logger,
) *RegressionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegressionService{
		cfg:     cfg,
		prices:  priceSource,
		factors: factorSource,
		engine:  engine,
		hub:     hub,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "regression")),
	}
}

// applyDefaults fills unset run parameters from configuration
func (s *RegressionService) applyDefaults(params domain.RunParams) domain.RunParams {
	if len(params.Tickers) == 0 {
		params.Tickers = s.cfg.Portfolio.Tickers
	}
	if params.Weights == nil {
		params.Weights = s.cfg.Portfolio.Weights
	}
	if params.WindowSize == 0 {
		params.WindowSize = s.cfg.Regression.WindowSize
	}
	if len(params.Factors) == 0 {
		params.Factors = s.cfg.Factors.Selection
	}
	if params.To.IsZero() {
		params.To = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if params.From.IsZero() {
		params.From = params.To.AddDate(-s.cfg.Prices.LookbackYears, 0, 0)
	}
	return params
}

// Run executes a full rolling regression and caches the result. The run is
// broadcast to websocket clients at start, completion, and failure.
func (s *RegressionService) Run(ctx context.Context, params domain.RunParams) (*domain.RegressionRun, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	params = s.applyDefaults(params)

	if err := returns.ValidateWeights(params.Tickers, params.Weights); err != nil {
		return nil, apierrors.NewWithDetails(400, "INVALID_WEIGHTS", "Portfolio weights are invalid", err.Error())
	}
	if !params.From.Before(params.To) {
		return nil, apierrors.NewWithDetails(400, "INVALID_RANGE", "Invalid date range", "from must precede to")
	}

	run := &domain.RegressionRun{
		ID:         uuid.New().String(),
		Tickers:    params.Tickers,
		WindowSize: params.WindowSize,
		StartedAt:  time.Now().UTC(),
	}
	logger := s.logger.With(slog.String("run_id", run.ID))
	logger.InfoContext(ctx, "regression run started",
		slog.Any("tickers", params.Tickers),
		slog.Int("window_size", params.WindowSize))
	s.broadcastSnapshot(ctx, events.MessageTypeRunStarted, run, "")

	result, err := s.execute(ctx, logger, params, run)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RegressionErrors.Add(ctx, 1)
		}
		logger.ErrorContext(ctx, "regression run failed", slog.String("error", err.Error()))
		s.broadcastSnapshot(ctx, events.MessageTypeRunFailed, run, err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.latestRun = result
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RegressionRuns.Add(ctx, 1)
		s.metrics.WindowsFit.Add(ctx, int64(len(result.Results)))
		s.metrics.WindowsSkipped.Add(ctx, int64(result.Skipped))
		s.metrics.RunDuration.Record(ctx, result.CompletedAt.Sub(result.StartedAt).Seconds())
	}
	logger.InfoContext(ctx, "regression run completed",
		slog.Int("windows", len(result.Results)),
		slog.Int("skipped", result.Skipped),
		slog.Int("observations", result.Observations))
	s.broadcastSnapshot(ctx, events.MessageTypeRunCompleted, result, "")

	return result, nil
}

// execute does the data plumbing for one run: prices to excess returns to
// aligned dataset to fitted windows.
func (s *RegressionService) execute(ctx context.Context, logger *slog.Logger, params domain.RunParams, run *domain.RegressionRun) (*domain.RegressionRun, error) {
	histories, err := s.prices.DailyHistories(ctx, params.Tickers, params.From, params.To)
	if err != nil {
		return nil, apierrors.UpstreamSourceError("prices", err)
	}
	if s.metrics != nil {
		s.metrics.PriceFetches.Add(ctx, int64(len(params.Tickers)))
	}

	factorSet, err := s.factors.Fetch(ctx)
	if err != nil {
		return nil, apierrors.UpstreamSourceError("factors", err)
	}
	if s.metrics != nil {
		s.metrics.FactorDownloads.Add(ctx, 1)
	}

	factorNames := params.Factors
	if len(factorNames) == 0 {
		factorNames = factorSet.Names
	}
	independents, err := factorSet.Independents(factorNames)
	if err != nil {
		return nil, apierrors.NewWithDetails(400, "UNKNOWN_FACTOR", "Requested factor is not in the factor file", err.Error())
	}

	byTicker := make(map[string]domain.Series, len(histories))
	for symbol, prices := range histories {
		rets, err := returns.LogReturns(prices)
		if err != nil {
			return nil, fmt.Errorf("returns for %s: %w", symbol, err)
		}
		byTicker[symbol] = rets
	}
	portfolio, err := returns.Portfolio(byTicker, params.Weights)
	if err != nil {
		return nil, fmt.Errorf("portfolio returns: %w", err)
	}
	excess := returns.Excess(portfolio, factorSet.RF)

	ds := regression.Align(excess, independents)
	run.Factors = ds.Names
	run.Observations = ds.Len()
	logger.DebugContext(ctx, "dataset aligned",
		slog.Int("observations", ds.Len()),
		slog.Any("factors", ds.Names))

	// An empty join is a valid run with no output, not an error
	if ds.Len() == 0 {
		run.Results = []domain.RegressionResult{}
		run.CompletedAt = time.Now().UTC()
		return run, nil
	}

	results, skipped, err := s.engine.Fit(ctx, ds, params.WindowSize)
	if err != nil {
		return nil, err
	}

	run.Results = results
	run.Skipped = skipped
	run.CompletedAt = time.Now().UTC()
	return run, nil
}

// LatestRun returns the most recent completed run, or false when no run has
// completed since startup.
func (s *RegressionService) LatestRun() (*domain.RegressionRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latestRun == nil {
		return nil, false
	}
	return s.latestRun, true
}

// RSquaredSeries projects the latest run onto its R-squared time series
func (s *RegressionService) RSquaredSeries() (domain.Series, error) {
	run, ok := s.LatestRun()
	if !ok {
		return nil, apierrors.ErrRunNotFound
	}
	return regression.Summarize(run.Results), nil
}

// CoefficientSeries projects the latest run onto one coefficient's estimates
// over time. The name "alpha" selects the intercept.
func (s *RegressionService) CoefficientSeries(name string) (domain.Series, error) {
	run, ok := s.LatestRun()
	if !ok {
		return nil, apierrors.ErrRunNotFound
	}
	if name == "alpha" {
		return regression.InterceptSeries(run.Results), nil
	}
	series, err := regression.CoefficientSeries(run.Results, name)
	if err != nil {
		available := make([]string, len(run.Factors))
		copy(available, run.Factors)
		sort.Strings(available)
		return nil, apierrors.NewWithDetails(404, "UNKNOWN_COEFFICIENT",
			"No such coefficient in the latest run",
			fmt.Sprintf("known factors: %v", available))
	}
	return series, nil
}

func (s *RegressionService) broadcastSnapshot(ctx context.Context, msgType events.MessageType, run *domain.RegressionRun, errMsg string) {
	if s.hub == nil {
		return
	}
	snapshot := events.RunSnapshot{
		RunID:      run.ID,
		Tickers:    run.Tickers,
		Factors:    run.Factors,
		WindowSize: run.WindowSize,
		Windows:    len(run.Results),
		Skipped:    run.Skipped,
		StartedAt:  run.StartedAt,
		Error:      errMsg,
	}
	switch msgType {
	case events.MessageTypeRunStarted:
		snapshot.Status = "running"
	case events.MessageTypeRunCompleted:
		snapshot.Status = "completed"
		snapshot.CompletedAt = &run.CompletedAt
	case events.MessageTypeRunFailed:
		snapshot.Status = "failed"
	}
	s.hub.BroadcastEvent(ctx, msgType, snapshot)
}
