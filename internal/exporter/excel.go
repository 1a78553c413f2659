package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"factorlens/pkg/contracts/domain"
)

const (
	resultsSheet = "Results"
	summarySheet = "Run"
)

// ExportXLSX writes a workbook with a Results sheet mirroring the CSV layout
// and a Run sheet describing the run parameters.
func (e *ResultsExporter) ExportXLSX(run *domain.RegressionRun, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(resultsSheet)
	if err != nil {
		return fmt.Errorf("failed to create results sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create run sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	factors := factorNames(run.Results)
	if factors == nil {
		factors = sortedCopy(run.Factors)
	}

	if err := writeResultsSheet(f, run, factors); err != nil {
		return err
	}
	if err := writeRunSheet(f, run); err != nil {
		return err
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("exported regression workbook",
		slog.String("run_id", run.ID),
		slog.String("path", outputPath),
		slog.Int("windows", len(run.Results)))
	return nil
}

func writeResultsSheet(f *excelize.File, run *domain.RegressionRun, factors []string) error {
	for col, header := range resultColumns(factors) {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(resultsSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", header, err)
		}
	}

	for i, res := range run.Results {
		row := i + 2
		values := []interface{}{
			res.EndDate.Format("2006-01-02"),
			res.RSquared,
			res.ResidualDF,
			res.Intercept.Estimate,
			res.Intercept.StdErr,
			res.Intercept.TStat,
			res.Intercept.PValue,
		}
		for _, name := range factors {
			coef := res.Coefficients[name]
			values = append(values, coef.Estimate, coef.StdErr, coef.TStat, coef.PValue)
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(resultsSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}
	return nil
}

func writeRunSheet(f *excelize.File, run *domain.RegressionRun) error {
	rows := [][]interface{}{
		{"RunID", run.ID},
		{"Tickers", strings.Join(run.Tickers, ", ")},
		{"Factors", strings.Join(run.Factors, ", ")},
		{"WindowSize", run.WindowSize},
		{"Observations", run.Observations},
		{"Windows", len(run.Results)},
		{"Skipped", run.Skipped},
		{"StartedAt", run.StartedAt.Format("2006-01-02 15:04:05")},
		{"CompletedAt", run.CompletedAt.Format("2006-01-02 15:04:05")},
	}
	for i, pair := range rows {
		for col, v := range pair {
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return fmt.Errorf("failed to write run sheet: %w", err)
			}
		}
	}
	return nil
}
