package factors

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"factorlens/pkg/contracts/domain"
)

// FactorSet is the parsed factor file: one named return series per factor
// plus the risk-free rate series. Names excludes RF and preserves the
// column order of the source file.
type FactorSet struct {
	Names  []string
	Series map[string]domain.Series
	RF     domain.Series
}

// Independents returns the factor series restricted to the requested names,
// or all of them when names is empty. Unknown names are an error so a
// misconfigured factor selection fails before any regression runs.
func (fs *FactorSet) Independents(names []string) (map[string]domain.Series, error) {
	if len(names) == 0 {
		names = fs.Names
	}
	out := make(map[string]domain.Series, len(names))
	for _, name := range names {
		series, ok := fs.Series[name]
		if !ok {
			return nil, fmt.Errorf("unknown factor %q (available: %s)", name, strings.Join(fs.Names, ", "))
		}
		out[name] = series
	}
	return out, nil
}

// Parse reads a Fama-French style delimited file. skipRows preamble lines
// are discarded, then the header row fixes the factor names; the last
// column must be RF. Daily rows carry an 8-digit YYYYMMDD key and percent
// values, divided by 100 here. The daily block ends at the first blank line
// or non-date row (the files trail with annual summaries); a malformed
// value inside the daily block fails loudly rather than defaulting.
func Parse(r io.Reader, skipRows int) (*FactorSet, error) {
	scanner := bufio.NewScanner(r)

	for i := 0; i < skipRows; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("factor file ended inside %d-line preamble at line %d", skipRows, i+1)
		}
	}

	if !scanner.Scan() {
		return nil, fmt.Errorf("factor file has no header row after preamble")
	}
	columns, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	if columns[len(columns)-1] != "RF" {
		return nil, fmt.Errorf("last factor column is %q, expected RF", columns[len(columns)-1])
	}
	names := columns[:len(columns)-1]

	fs := &FactorSet{
		Names:  names,
		Series: make(map[string]domain.Series, len(names)),
	}

	line := skipRows + 1
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			break // end of the daily block
		}

		fields := strings.Split(raw, ",")
		date, ok := parseCompactDate(strings.TrimSpace(fields[0]))
		if !ok {
			break // annual summary section follows the daily rows
		}

		if len(fields) != len(columns)+1 {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(columns)+1, len(fields))
		}

		for i, name := range columns {
			value, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse %s: %w", line, name, err)
			}
			point := domain.SeriesPoint{Date: date, Value: value / 100}
			if name == "RF" {
				fs.RF = append(fs.RF, point)
			} else {
				fs.Series[name] = append(fs.Series[name], point)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read factor file: %w", err)
	}

	if len(fs.RF) == 0 {
		return nil, fmt.Errorf("factor file contains no daily rows")
	}
	return fs, nil
}

// parseHeader splits the header row into factor column names. The first
// field is the unnamed date column and is dropped.
func parseHeader(header string) ([]string, error) {
	fields := strings.Split(header, ",")
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed factor header: %q", header)
	}

	columns := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		name := strings.TrimSpace(f)
		if name == "" {
			return nil, fmt.Errorf("empty factor column name in header: %q", header)
		}
		columns = append(columns, name)
	}
	return columns, nil
}

// parseCompactDate parses the 8-digit YYYYMMDD date key
func parseCompactDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	date, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
