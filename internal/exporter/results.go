package exporter

import (
	"fmt"
	"log/slog"
	"sort"

	"factorlens/pkg/contracts/domain"
)

// ResultsExporter writes rolling regression output to files the dashboard
// and offline analysis can consume.
type ResultsExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewResultsExporter creates a new regression results exporter
func NewResultsExporter(logger *slog.Logger) *ResultsExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsExporter{
		csvWriter: NewCSVWriter(logger),
		logger:    logger.With(slog.String("component", "results_exporter")),
	}
}

// resultColumns returns the column headers for a set of factor names.
// Factor order is alphabetical so repeated exports of the same run are
// byte-identical.
func resultColumns(factors []string) []string {
	headers := []string{
		"Date", "RSquared", "ResidualDF",
		"Alpha", "Alpha_StdErr", "Alpha_TStat", "Alpha_PValue",
	}
	for _, name := range factors {
		headers = append(headers,
			name+"_Beta",
			name+"_StdErr",
			name+"_TStat",
			name+"_PValue",
		)
	}
	return headers
}

// factorNames extracts the sorted factor names present in a result set
func factorNames(results []domain.RegressionResult) []string {
	if len(results) == 0 {
		return nil
	}
	names := make([]string, 0, len(results[0].Coefficients))
	for name := range results[0].Coefficients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resultRow(res domain.RegressionResult, factors []string) []string {
	row := []string{
		res.EndDate.Format("2006-01-02"),
		formatFloat(res.RSquared),
		formatInt(res.ResidualDF),
		formatFloat(res.Intercept.Estimate),
		formatFloat(res.Intercept.StdErr),
		formatFloat(res.Intercept.TStat),
		formatFloat(res.Intercept.PValue),
	}
	for _, name := range factors {
		coef := res.Coefficients[name]
		row = append(row,
			formatFloat(coef.Estimate),
			formatFloat(coef.StdErr),
			formatFloat(coef.TStat),
			formatFloat(coef.PValue),
		)
	}
	return row
}

// ExportCSV writes one row per window end date with the full coefficient
// table for each window. An empty result set still produces a file with
// headers so downstream tooling can tell "ran, no output" from "never ran".
func (e *ResultsExporter) ExportCSV(run *domain.RegressionRun, outputPath string) error {
	factors := factorNames(run.Results)
	if factors == nil {
		factors = sortedCopy(run.Factors)
	}

	sw, err := e.csvWriter.CreateStreamWriter(outputPath, resultColumns(factors))
	if err != nil {
		return fmt.Errorf("failed to export run %s: %w", run.ID, err)
	}

	for _, res := range run.Results {
		if err := sw.WriteRecord(resultRow(res, factors)); err != nil {
			sw.Close()
			return fmt.Errorf("failed to export run %s: %w", run.ID, err)
		}
	}

	if err := sw.Close(); err != nil {
		return fmt.Errorf("failed to export run %s: %w", run.ID, err)
	}

	e.logger.Info("exported regression results",
		slog.String("run_id", run.ID),
		slog.String("path", outputPath),
		slog.Int("windows", len(run.Results)),
		slog.Int("skipped", run.Skipped))
	return nil
}

func sortedCopy(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
