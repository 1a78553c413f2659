package domain

import (
	"time"
)

// SeriesPoint represents a single dated value in a time series
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DateKey returns the canonical day key used when joining series on date
func (p SeriesPoint) DateKey() string {
	return p.Date.Format("2006-01-02")
}

// Series is an ordered sequence of dated values
type Series []SeriesPoint

// IsSorted reports whether the series is in ascending date order
func (s Series) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Date.Before(s[i-1].Date) {
			return false
		}
	}
	return true
}

// Values returns the raw values of the series in order
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}
