package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "factorlens/internal/errors"
	"factorlens/pkg/contracts/domain"
)

type stubService struct {
	run       *domain.RegressionRun
	runErr    error
	lastParam domain.RunParams
	series    domain.Series
	seriesErr error
}

func (s *stubService) Run(ctx context.Context, params domain.RunParams) (*domain.RegressionRun, error) {
	s.lastParam = params
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.run, nil
}

func (s *stubService) LatestRun() (*domain.RegressionRun, bool) {
	return s.run, s.run != nil
}

func (s *stubService) RSquaredSeries() (domain.Series, error) {
	return s.series, s.seriesErr
}

func (s *stubService) CoefficientSeries(name string) (domain.Series, error) {
	return s.series, s.seriesErr
}

func newTestHandler(svc *stubService) *RegressionHandler {
	errorHandler := apierrors.NewErrorHandler(slog.Default(), false)
	return NewRegressionHandler(svc, errorHandler, slog.Default())
}

func sampleRun() *domain.RegressionRun {
	return &domain.RegressionRun{
		ID:         "run-1",
		Tickers:    []string{"SPY"},
		Factors:    []string{"Mkt-RF"},
		WindowSize: 60,
		Results: []domain.RegressionResult{
			{
				EndDate:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				Coefficients: map[string]domain.Coefficient{"Mkt-RF": {Estimate: 1.02}},
				RSquared:     0.9,
				ResidualDF:   58,
			},
		},
	}
}

func TestRunEndpoint(t *testing.T) {
	svc := &stubService{run: sampleRun()}
	handler := newTestHandler(svc)

	body := `{"tickers":["SPY"],"weights":{"SPY":1.0},"window_size":60,"from":"2022-01-01","to":"2024-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.RegressionRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.ID)

	assert.Equal(t, []string{"SPY"}, svc.lastParam.Tickers)
	assert.Equal(t, 60, svc.lastParam.WindowSize)
	assert.Equal(t, 2022, svc.lastParam.From.Year())
}

func TestRunEndpointEmptyBody(t *testing.T) {
	svc := &stubService{run: sampleRun()}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	// Empty body means run with configured defaults
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, svc.lastParam.Tickers)
}

func TestRunEndpointChunkedBody(t *testing.T) {
	svc := &stubService{run: sampleRun()}
	handler := newTestHandler(svc)

	// Wrapping the reader hides its length, so the request goes out with
	// ContentLength -1 the way a chunked POST arrives
	body := io.NopCloser(strings.NewReader(`{"tickers":["SPY"],"window_size":60}`))
	req := httptest.NewRequest(http.MethodPost, "/run", body)
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, int64(-1), req.ContentLength)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"SPY"}, svc.lastParam.Tickers)
	assert.Equal(t, 60, svc.lastParam.WindowSize)
}

func TestRunEndpointValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"tickers":`},
		{"window too small", `{"window_size":2}`},
		{"bad date", `{"from":"01/02/2022"}`},
		{"empty ticker", `{"tickers":[""]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&stubService{run: sampleRun()})
			req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, "/errors/validation", problem["type"])
		})
	}
}

func TestRunEndpointServiceError(t *testing.T) {
	svc := &stubService{runErr: apierrors.UpstreamSourceError("prices", context.DeadlineExceeded)}
	handler := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/data/upstream-source", problem["type"])
}

func TestLatestRunEndpoint(t *testing.T) {
	t.Run("no run yet", func(t *testing.T) {
		handler := newTestHandler(&stubService{})
		req := httptest.NewRequest(http.MethodGet, "/run/latest", nil)
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var problem map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "/errors/regression/run-not-found", problem["type"])
	})

	t.Run("run available", func(t *testing.T) {
		handler := newTestHandler(&stubService{run: sampleRun()})
		req := httptest.NewRequest(http.MethodGet, "/run/latest", nil)
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSeriesEndpoints(t *testing.T) {
	series := domain.Series{
		{Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Value: 0.9},
	}

	t.Run("rsquared", func(t *testing.T) {
		handler := newTestHandler(&stubService{series: series})
		req := httptest.NewRequest(http.MethodGet, "/rsquared", nil)
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp seriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "r_squared", resp.Name)
		require.Len(t, resp.Series, 1)
		assert.InDelta(t, 0.9, resp.Series[0].Value, 1e-12)
	})

	t.Run("coefficient", func(t *testing.T) {
		handler := newTestHandler(&stubService{series: series})
		req := httptest.NewRequest(http.MethodGet, "/coefficients/Mkt-RF", nil)
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp seriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Mkt-RF", resp.Name)
	})

	t.Run("no run yet", func(t *testing.T) {
		handler := newTestHandler(&stubService{seriesErr: apierrors.ErrRunNotFound})
		req := httptest.NewRequest(http.MethodGet, "/rsquared", nil)
		rec := httptest.NewRecorder()

		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
