package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorlens/internal/config"
	apierrors "factorlens/internal/errors"
	"factorlens/internal/factors"
	"factorlens/internal/regression"
	"factorlens/pkg/contracts/domain"
)

type stubPrices struct {
	histories map[string]domain.Series
	err       error
	calls     int
}

func (s *stubPrices) DailyHistories(ctx context.Context, symbols []string, from, to time.Time) (map[string]domain.Series, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.histories, nil
}

type stubFactors struct {
	set *factors.FactorSet
	err error
}

func (s *stubFactors) Fetch(ctx context.Context) (*factors.FactorSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

// syntheticData builds n trading days where the portfolio's excess log
// return is exactly 0.5*Mkt + 0.1 so the fit is deterministic.
func syntheticData(n int) (map[string]domain.Series, *factors.FactorSet) {
	prices := make(domain.Series, 0, n+1)
	mkt := make(domain.Series, 0, n)
	rf := make(domain.Series, 0, n)

	price := 100.0
	prices = append(prices, domain.SeriesPoint{Date: day(1), Value: price})
	for i := 0; i < n; i++ {
		d := day(i + 2)
		market := 0.01 * math.Sin(float64(i)) // varies, keeps the design full rank
		ret := 0.5*market + 0.1
		price *= math.Exp(ret) // rf is zero so excess equals the raw return
		prices = append(prices, domain.SeriesPoint{Date: d, Value: price})
		mkt = append(mkt, domain.SeriesPoint{Date: d, Value: market})
		rf = append(rf, domain.SeriesPoint{Date: d, Value: 0})
	}

	set := &factors.FactorSet{
		Names:  []string{"Mkt-RF"},
		Series: map[string]domain.Series{"Mkt-RF": mkt},
		RF:     rf,
	}
	return map[string]domain.Series{"TEST": prices}, set
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Portfolio.Tickers = []string{"TEST"}
	cfg.Portfolio.Weights = map[string]float64{"TEST": 1.0}
	cfg.Regression.WindowSize = 10
	return cfg
}

func newTestService(t *testing.T, prices PriceSource, factorSource FactorSource) *RegressionService {
	t.Helper()
	engine := regression.NewEngine(slog.Default())
	return NewRegressionService(testConfig(), prices, factorSource, engine, nil, nil, slog.Default())
}

func TestRunProducesResults(t *testing.T) {
	histories, set := syntheticData(30)
	svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{set: set})

	run, err := svc.Run(context.Background(), domain.RunParams{})
	require.NoError(t, err)

	// 30 observations, window 10: windows end at obs 10..30
	assert.Len(t, run.Results, 21)
	assert.Equal(t, 0, run.Skipped)
	assert.Equal(t, 30, run.Observations)
	assert.Equal(t, []string{"Mkt-RF"}, run.Factors)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CompletedAt.IsZero())

	// Exact linear relationship recovers the true coefficients
	first := run.Results[0]
	assert.InDelta(t, 0.5, first.Coefficients["Mkt-RF"].Estimate, 1e-9)
	assert.InDelta(t, 0.1, first.Intercept.Estimate, 1e-9)

	// Latest run is cached for the chart endpoints
	cached, ok := svc.LatestRun()
	require.True(t, ok)
	assert.Equal(t, run.ID, cached.ID)
}

func TestRunEmptyJoin(t *testing.T) {
	histories, set := syntheticData(30)
	// Shift the factor dates so nothing overlaps with the price returns
	shifted := make(domain.Series, len(set.RF))
	for i, p := range set.Series["Mkt-RF"] {
		shifted[i] = domain.SeriesPoint{Date: p.Date.AddDate(1, 0, 0), Value: p.Value}
	}
	rf := make(domain.Series, len(set.RF))
	for i, p := range set.RF {
		rf[i] = domain.SeriesPoint{Date: p.Date.AddDate(1, 0, 0), Value: p.Value}
	}
	set.Series["Mkt-RF"] = shifted
	set.RF = rf

	svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{set: set})

	run, err := svc.Run(context.Background(), domain.RunParams{})
	require.NoError(t, err)
	assert.Empty(t, run.Results)
	assert.Equal(t, 0, run.Observations)
}

func TestRunInsufficientData(t *testing.T) {
	histories, set := syntheticData(5)
	svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{set: set})

	// With one factor the smallest usable window is 3; 2 cannot fit
	_, err := svc.Run(context.Background(), domain.RunParams{WindowSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, regression.ErrInsufficientData)
}

func TestRunUpstreamFailures(t *testing.T) {
	histories, set := syntheticData(30)

	t.Run("prices down", func(t *testing.T) {
		svc := newTestService(t, &stubPrices{err: errors.New("connection refused")}, &stubFactors{set: set})
		_, err := svc.Run(context.Background(), domain.RunParams{})
		require.Error(t, err)
		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 502, apiErr.StatusCode)
	})

	t.Run("factors down", func(t *testing.T) {
		svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{err: errors.New("timeout")})
		_, err := svc.Run(context.Background(), domain.RunParams{})
		require.Error(t, err)
		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 502, apiErr.StatusCode)
	})
}

func TestRunValidatesWeights(t *testing.T) {
	histories, set := syntheticData(30)
	svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{set: set})

	_, err := svc.Run(context.Background(), domain.RunParams{
		Tickers: []string{"TEST"},
		Weights: map[string]float64{"TEST": 0.7}, // does not sum to 1
	})
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, "INVALID_WEIGHTS", apiErr.ErrorCode)
}

func TestRunUnknownFactor(t *testing.T) {
	histories, set := syntheticData(30)
	svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{set: set})

	_, err := svc.Run(context.Background(), domain.RunParams{Factors: []string{"UMD"}})
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNKNOWN_FACTOR", apiErr.ErrorCode)
}

func TestSeriesProjections(t *testing.T) {
	histories, set := syntheticData(30)
	svc := newTestService(t, &stubPrices{histories: histories}, &stubFactors{set: set})

	// Before any run the chart endpoints report not found
	_, err := svc.RSquaredSeries()
	assert.ErrorIs(t, err, apierrors.ErrRunNotFound)
	_, err = svc.CoefficientSeries("Mkt-RF")
	assert.ErrorIs(t, err, apierrors.ErrRunNotFound)

	run, err := svc.Run(context.Background(), domain.RunParams{})
	require.NoError(t, err)

	r2, err := svc.RSquaredSeries()
	require.NoError(t, err)
	assert.Len(t, r2, len(run.Results))

	beta, err := svc.CoefficientSeries("Mkt-RF")
	require.NoError(t, err)
	require.Len(t, beta, len(run.Results))
	assert.InDelta(t, 0.5, beta[0].Value, 1e-9)

	alpha, err := svc.CoefficientSeries("alpha")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, alpha[0].Value, 1e-9)

	_, err = svc.CoefficientSeries("nope")
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}
