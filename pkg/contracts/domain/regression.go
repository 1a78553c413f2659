package domain

import (
	"time"
)

// Coefficient holds the full inferential statistics for one fitted coefficient
type Coefficient struct {
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	TStat    float64 `json:"t_stat"`
	PValue   float64 `json:"p_value"`
}

// RegressionResult is one window's OLS fit. Produced once per window and
// immutable afterward; the charting layer consumes it via projections.
type RegressionResult struct {
	EndDate      time.Time              `json:"end_date"`
	Intercept    Coefficient            `json:"intercept"`
	Coefficients map[string]Coefficient `json:"coefficients"`
	RSquared     float64                `json:"r_squared"`
	ResidualDF   int                    `json:"residual_df"`
}

// RegressionRun describes a completed rolling-regression run and its results
type RegressionRun struct {
	ID          string             `json:"id"`
	Tickers     []string           `json:"tickers"`
	Factors     []string           `json:"factors"`
	WindowSize  int                `json:"window_size"`
	Observations int               `json:"observations"`
	Skipped     int                `json:"skipped_windows"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	Results     []RegressionResult `json:"results"`
}

// RunParams are the configuration knobs the dashboard may vary per run
type RunParams struct {
	Tickers    []string           `json:"tickers" validate:"required,min=1,dive,required"`
	Weights    map[string]float64 `json:"weights" validate:"required"`
	Factors    []string           `json:"factors,omitempty"`
	WindowSize int                `json:"window_size" validate:"required,min=3"`
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
}
