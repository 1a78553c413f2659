package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Regression.WindowSize)
	assert.Equal(t, 3, cfg.Factors.SkipRows)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default passes",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid port",
			mutate: func(c *Config) {
				c.Server.Port = 0
			},
			wantErr: "struct validation",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			wantErr: "struct validation",
		},
		{
			name: "weight missing for ticker",
			mutate: func(c *Config) {
				c.Portfolio.Tickers = []string{"AAPL", "MSFT"}
				c.Portfolio.Weights = map[string]float64{"AAPL": 1.0}
			},
			wantErr: "portfolio weights",
		},
		{
			name: "weights must sum to one",
			mutate: func(c *Config) {
				c.Portfolio.Tickers = []string{"AAPL", "MSFT"}
				c.Portfolio.Weights = map[string]float64{"AAPL": 0.6, "MSFT": 0.6}
			},
			wantErr: "portfolio weights",
		},
		{
			name: "window too small for factor selection",
			mutate: func(c *Config) {
				c.Factors.Selection = []string{"Mkt-RF", "SMB", "HML"}
				c.Regression.WindowSize = 4
			},
			wantErr: "too small",
		},
		{
			name: "window large enough for factor selection",
			mutate: func(c *Config) {
				c.Factors.Selection = []string{"Mkt-RF", "SMB", "HML"}
				c.Regression.WindowSize = 5
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
