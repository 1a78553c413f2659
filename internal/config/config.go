package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"factorlens/internal/returns"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Portfolio  PortfolioConfig  `yaml:"portfolio" envconfig:"PORTFOLIO"`
	Factors    FactorsConfig    `yaml:"factors" envconfig:"FACTORS"`
	Prices     PricesConfig     `yaml:"prices" envconfig:"PRICES"`
	Regression RegressionConfig `yaml:"regression" envconfig:"REGRESSION"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PortfolioConfig declares the tickers and their weights. Weights are an
// explicit symbol-to-weight map, validated against the ticker list at load
// time; there is no positional matching.
type PortfolioConfig struct {
	Tickers []string           `yaml:"tickers" envconfig:"TICKERS" default:"SPY" validate:"min=1,dive,required"`
	Weights map[string]float64 `yaml:"weights" envconfig:"WEIGHTS" default:"SPY:1.0"`
}

// FactorsConfig describes the factor archive source
type FactorsConfig struct {
	URL             string        `yaml:"url" envconfig:"URL" default:"https://mba.tuck.dartmouth.edu/pages/faculty/ken.french/ftp/F-F_Research_Data_Factors_daily_CSV.zip" validate:"url"`
	SkipRows        int           `yaml:"skip_rows" envconfig:"SKIP_ROWS" default:"3" validate:"min=0"`
	Selection       []string      `yaml:"selection" envconfig:"SELECTION"`
	CacheDir        string        `yaml:"cache_dir" envconfig:"CACHE_DIR" default:"data/factors"`
	CacheTTL        time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL" default:"24h"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"2m"`
}

// PricesConfig describes the price history source
type PricesConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://stooq.com" validate:"url"`
	RequestTimeout    time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"4"`
	LookbackYears     int           `yaml:"lookback_years" envconfig:"LOOKBACK_YEARS" default:"3" validate:"min=1"`
}

// RegressionConfig tunes the rolling regression engine
type RegressionConfig struct {
	WindowSize    int     `yaml:"window_size" envconfig:"WINDOW_SIZE" default:"60" validate:"min=3"`
	CondThreshold float64 `yaml:"cond_threshold" envconfig:"COND_THRESHOLD" default:"1e12" validate:"gt=0"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from an optional config.yaml overlaid with
// environment variables (prefix FACTORLENS), environment taking precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("FACTORLENS", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints plus the cross-field portfolio
// rules that struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("struct validation: %w", err)
	}

	if err := returns.ValidateWeights(c.Portfolio.Tickers, c.Portfolio.Weights); err != nil {
		return fmt.Errorf("portfolio weights: %w", err)
	}

	if len(c.Factors.Selection) > 0 && c.Regression.WindowSize < len(c.Factors.Selection)+2 {
		return fmt.Errorf("window size %d too small for %d selected factors",
			c.Regression.WindowSize, len(c.Factors.Selection))
	}
	return nil
}

// configFilePath returns the first config file found in common locations
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
			AllowedOrigins:  []string{"http://localhost:8080"},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Portfolio: PortfolioConfig{
			Tickers: []string{"SPY"},
			Weights: map[string]float64{"SPY": 1.0},
		},
		Factors: FactorsConfig{
			URL:             "https://mba.tuck.dartmouth.edu/pages/faculty/ken.french/ftp/F-F_Research_Data_Factors_daily_CSV.zip",
			SkipRows:        3,
			CacheDir:        "data/factors",
			CacheTTL:        24 * time.Hour,
			DownloadTimeout: 2 * time.Minute,
		},
		Prices: PricesConfig{
			BaseURL:           "https://stooq.com",
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 4,
			LookbackYears:     3,
		},
		Regression: RegressionConfig{
			WindowSize:    60,
			CondThreshold: 1e12,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
