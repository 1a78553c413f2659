// Command regress runs one rolling factor regression from the command line
// and writes the results to CSV and Excel files. It shares the service layer
// with the web server; only the transport differs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"factorlens/internal/config"
	"factorlens/internal/exporter"
	"factorlens/internal/factors"
	"factorlens/internal/infrastructure"
	"factorlens/internal/prices"
	"factorlens/internal/regression"
	"factorlens/internal/services"
	"factorlens/pkg/contracts/domain"
)

func main() {
	var (
		tickersFlag = flag.String("tickers", "", "comma-separated ticker symbols (default: configured portfolio)")
		factorsFlag = flag.String("factors", "", "comma-separated factor names (default: all factors in the file)")
		window      = flag.Int("window", 0, "rolling window size in trading days (default: configured)")
		from        = flag.String("from", "", "start date YYYY-MM-DD")
		to          = flag.String("to", "", "end date YYYY-MM-DD")
		outDir      = flag.String("out", "reports", "output directory")
		xlsx        = flag.Bool("xlsx", true, "also write an Excel workbook")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	params, err := buildParams(*tickersFlag, *factorsFlag, *window, *from, *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	engine := regression.NewEngine(logger,
		regression.WithCondThreshold(cfg.Regression.CondThreshold))
	svc := services.NewRegressionService(cfg,
		prices.NewClient(cfg.Prices, logger),
		factors.NewClient(cfg.Factors, logger),
		engine, nil, nil, logger)

	run, err := svc.Run(ctx, params)
	if err != nil {
		logger.Error("regression run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	results := exporter.NewResultsExporter(logger)
	csvPath := filepath.Join(*outDir, fmt.Sprintf("regression_%s.csv", run.ID[:8]))
	if err := results.ExportCSV(run, csvPath); err != nil {
		logger.Error("CSV export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d windows, %d skipped)\n", csvPath, len(run.Results), run.Skipped)

	if *xlsx {
		xlsxPath := filepath.Join(*outDir, fmt.Sprintf("regression_%s.xlsx", run.ID[:8]))
		if err := results.ExportXLSX(run, xlsxPath); err != nil {
			logger.Error("Excel export failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", xlsxPath)
	}
}

func buildParams(tickers, factorNames string, window int, from, to string) (domain.RunParams, error) {
	params := domain.RunParams{WindowSize: window}

	if tickers != "" {
		params.Tickers = splitList(tickers)
		// Equal weights when tickers come from the command line
		w := 1.0 / float64(len(params.Tickers))
		params.Weights = make(map[string]float64, len(params.Tickers))
		for _, t := range params.Tickers {
			params.Weights[t] = w
		}
	}
	if factorNames != "" {
		params.Factors = splitList(factorNames)
	}

	var err error
	if from != "" {
		if params.From, err = time.Parse("2006-01-02", from); err != nil {
			return params, fmt.Errorf("from: %w", err)
		}
	}
	if to != "" {
		if params.To, err = time.Parse("2006-01-02", to); err != nil {
			return params, fmt.Errorf("to: %w", err)
		}
	}
	return params, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
