package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"factorlens/pkg/contracts/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func sampleRun() *domain.RegressionRun {
	return &domain.RegressionRun{
		ID:           "run-1",
		Tickers:      []string{"AAPL", "MSFT"},
		Factors:      []string{"Mkt-RF", "SMB"},
		WindowSize:   60,
		Observations: 62,
		Skipped:      1,
		StartedAt:    day(1),
		CompletedAt:  day(1).Add(time.Second),
		Results: []domain.RegressionResult{
			{
				EndDate:   day(10),
				Intercept: domain.Coefficient{Estimate: 0.001, StdErr: 0.0005, TStat: 2.0, PValue: 0.05},
				Coefficients: map[string]domain.Coefficient{
					"Mkt-RF": {Estimate: 1.1, StdErr: 0.1, TStat: 11.0, PValue: 0.0001},
					"SMB":    {Estimate: -0.2, StdErr: 0.15, TStat: -1.33, PValue: 0.19},
				},
				RSquared:   0.85,
				ResidualDF: 57,
			},
			{
				EndDate:   day(11),
				Intercept: domain.Coefficient{Estimate: 0.0012, StdErr: 0.0005, TStat: 2.4, PValue: 0.02},
				Coefficients: map[string]domain.Coefficient{
					"Mkt-RF": {Estimate: 1.08, StdErr: 0.1, TStat: 10.8, PValue: 0.0001},
					"SMB":    {Estimate: -0.18, StdErr: 0.15, TStat: -1.2, PValue: 0.24},
				},
				RSquared:   0.84,
				ResidualDF: 57,
			},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Strip the UTF-8 BOM before parsing
	content := strings.TrimPrefix(string(raw), "\xEF\xBB\xBF")
	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportCSV(t *testing.T) {
	e := NewResultsExporter(slog.Default())
	path := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, e.ExportCSV(sampleRun(), path))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, []string{
		"Date", "RSquared", "ResidualDF",
		"Alpha", "Alpha_StdErr", "Alpha_TStat", "Alpha_PValue",
		"Mkt-RF_Beta", "Mkt-RF_StdErr", "Mkt-RF_TStat", "Mkt-RF_PValue",
		"SMB_Beta", "SMB_StdErr", "SMB_TStat", "SMB_PValue",
	}, header)

	assert.Equal(t, "2024-01-10", rows[1][0])
	assert.Equal(t, "0.850000", rows[1][1])
	assert.Equal(t, "57", rows[1][2])
	assert.Equal(t, "1.100000", rows[1][7])
	assert.Equal(t, "-0.200000", rows[1][11])
	assert.Equal(t, "2024-01-11", rows[2][0])
}

func TestExportCSVEmptyRun(t *testing.T) {
	e := NewResultsExporter(slog.Default())
	path := filepath.Join(t.TempDir(), "empty.csv")

	run := sampleRun()
	run.Results = nil

	require.NoError(t, e.ExportCSV(run, path))

	rows := readCSV(t, path)
	// Headers only, derived from the run's requested factors
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "Mkt-RF_Beta")
	assert.Contains(t, rows[0], "SMB_Beta")
}

func TestExportXLSX(t *testing.T) {
	e := NewResultsExporter(slog.Default())
	path := filepath.Join(t.TempDir(), "results.xlsx")

	require.NoError(t, e.ExportXLSX(sampleRun(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2024-01-10", rows[1][0])

	runRows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.NotEmpty(t, runRows)
	assert.Equal(t, "RunID", runRows[0][0])
	assert.Equal(t, "run-1", runRows[0][1])
}

func TestStreamWriter(t *testing.T) {
	w := NewCSVWriter(slog.Default())
	path := filepath.Join(t.TempDir(), "stream.csv")

	sw, err := w.CreateStreamWriter(path, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, sw.WriteRecord([]string{"1", "2"}))
	require.NoError(t, sw.WriteRecord([]string{"3", "4"}))
	require.NoError(t, sw.Close())

	rows := readCSV(t, path)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}, rows)
}
