package regression

import (
	"fmt"

	"factorlens/pkg/contracts/domain"
)

// Summarize projects a result sequence to its (end date, R²) series for the
// dashboard's fit-quality chart. Pure field extraction, no new computation.
func Summarize(results []domain.RegressionResult) domain.Series {
	series := make(domain.Series, len(results))
	for i, r := range results {
		series[i] = domain.SeriesPoint{Date: r.EndDate, Value: r.RSquared}
	}
	return series
}

// CoefficientSeries projects a result sequence to the (end date, estimate)
// series of one named independent variable. The name must exist in every
// result; an unknown name is a caller error.
func CoefficientSeries(results []domain.RegressionResult, name string) (domain.Series, error) {
	series := make(domain.Series, len(results))
	for i, r := range results {
		c, ok := r.Coefficients[name]
		if !ok {
			return nil, fmt.Errorf("unknown independent variable %q", name)
		}
		series[i] = domain.SeriesPoint{Date: r.EndDate, Value: c.Estimate}
	}
	return series, nil
}

// InterceptSeries projects a result sequence to its (end date, intercept
// estimate) series.
func InterceptSeries(results []domain.RegressionResult) domain.Series {
	series := make(domain.Series, len(results))
	for i, r := range results {
		series[i] = domain.SeriesPoint{Date: r.EndDate, Value: r.Intercept.Estimate}
	}
	return series
}
