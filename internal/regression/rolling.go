package regression

import (
	"context"
	"fmt"
	"log/slog"

	"factorlens/pkg/contracts/domain"
)

// Engine fits rolling OLS regressions over an aligned dataset. It carries no
// per-call state; a single Engine is safe for concurrent use.
type Engine struct {
	logger        *slog.Logger
	condThreshold float64
}

// Option configures an Engine
type Option func(*Engine)

// WithCondThreshold overrides the singularity condition-number threshold
func WithCondThreshold(threshold float64) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.condThreshold = threshold
		}
	}
}

// NewEngine creates a rolling regression engine
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:        logger.With(slog.String("component", "regression_engine")),
		condThreshold: DefaultCondThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit computes one OLS fit per trailing window of windowSize consecutive
// observations, in ascending end-date order.
//
// windowSize must be at least NumVars+2 so the residual degrees of freedom
// stay positive; otherwise ErrInsufficientData is returned with no partial
// result. Fewer observations than windowSize yields an empty result slice.
// A window whose design matrix is (near-)singular is skipped with a warning
// log; the skip never aborts the remaining windows. The skipped count is
// returned alongside the results.
func (e *Engine) Fit(ctx context.Context, ds Dataset, windowSize int) ([]domain.RegressionResult, int, error) {
	if windowSize < ds.NumVars()+2 {
		return nil, 0, fmt.Errorf("window size %d with %d independent variables: %w",
			windowSize, ds.NumVars(), ErrInsufficientData)
	}

	n := ds.Len()
	if n < windowSize {
		e.logger.DebugContext(ctx, "fewer observations than window size",
			slog.Int("observations", n),
			slog.Int("window_size", windowSize),
		)
		return []domain.RegressionResult{}, 0, nil
	}

	results := make([]domain.RegressionResult, 0, n-windowSize+1)
	skipped := 0

	for i := windowSize - 1; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, skipped, fmt.Errorf("rolling fit cancelled: %w", ctx.Err())
		default:
		}

		window := ds.Obs[i-windowSize+1 : i+1]
		result, err := olsFit(window, ds.Names, e.condThreshold)
		if err != nil {
			// Window-local failure: log and move on
			skipped++
			e.logger.WarnContext(ctx, "skipping singular regression window",
				slog.String("end_date", window[len(window)-1].Date.Format("2006-01-02")),
				slog.String("error", err.Error()),
			)
			continue
		}
		results = append(results, result)
	}

	e.logger.InfoContext(ctx, "rolling regression completed",
		slog.Int("observations", n),
		slog.Int("window_size", windowSize),
		slog.Int("windows_fit", len(results)),
		slog.Int("windows_skipped", skipped),
	)

	return results, skipped, nil
}

// FitWindow fits a single window of observations. It is the one-shot form of
// Fit used by callers that already hold exactly one window of data.
func (e *Engine) FitWindow(obs []Observation, names []string) (domain.RegressionResult, error) {
	if len(obs) < len(names)+2 {
		return domain.RegressionResult{}, fmt.Errorf("%d observations with %d independent variables: %w",
			len(obs), len(names), ErrInsufficientData)
	}
	return olsFit(obs, names, e.condThreshold)
}
