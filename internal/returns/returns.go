// Package returns builds portfolio excess-return series from per-ticker
// price histories. Prices become daily log returns, log returns combine
// through an explicit symbol-to-weight map, and the risk-free rate is
// subtracted date by date.
package returns

import (
	"fmt"
	"math"
	"sort"

	"factorlens/pkg/contracts/domain"
)

// WeightSumTolerance bounds how far the portfolio weights may drift from
// summing to one before configuration is rejected.
const WeightSumTolerance = 1e-6

// LogReturns converts an ascending adjusted-close price series into daily
// log returns: ln(p_t) - ln(p_{t-1}), dated at t. A series with fewer than
// two points yields an empty result. Non-positive prices are invalid input.
func LogReturns(prices domain.Series) (domain.Series, error) {
	if len(prices) < 2 {
		return domain.Series{}, nil
	}

	rets := make(domain.Series, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, curr := prices[i-1], prices[i]
		if prev.Value <= 0 || curr.Value <= 0 {
			return nil, fmt.Errorf("non-positive price on %s", curr.DateKey())
		}
		rets = append(rets, domain.SeriesPoint{
			Date:  curr.Date,
			Value: math.Log(curr.Value) - math.Log(prev.Value),
		})
	}
	return rets, nil
}

// ValidateWeights checks a symbol-to-weight map against the configured
// ticker list: every ticker must carry a weight, no extraneous symbols, all
// weights non-negative, and the sum within WeightSumTolerance of one.
func ValidateWeights(tickers []string, weights map[string]float64) error {
	if len(weights) != len(tickers) {
		return fmt.Errorf("weight count %d does not match ticker count %d", len(weights), len(tickers))
	}

	var sum float64
	for _, ticker := range tickers {
		w, ok := weights[ticker]
		if !ok {
			return fmt.Errorf("missing weight for ticker %s", ticker)
		}
		if w < 0 {
			return fmt.Errorf("negative weight %.6f for ticker %s", w, ticker)
		}
		sum += w
	}

	if math.Abs(sum-1) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %.6f, expected 1", sum)
	}
	return nil
}

// Portfolio combines per-ticker return series into one weighted portfolio
// return series. Dates missing from any ticker are dropped (inner join), so
// the output covers only days on which every ticker traded. Output is in
// ascending date order.
func Portfolio(byTicker map[string]domain.Series, weights map[string]float64) (domain.Series, error) {
	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	if err := ValidateWeights(tickers, weights); err != nil {
		return nil, fmt.Errorf("validate weights: %w", err)
	}
	if len(tickers) == 0 {
		return domain.Series{}, nil
	}

	// Index the remaining tickers by day key, then walk the first ticker's
	// dates in order.
	indexed := make([]map[string]float64, 0, len(tickers)-1)
	for _, ticker := range tickers[1:] {
		byDate := make(map[string]float64, len(byTicker[ticker]))
		for _, p := range byTicker[ticker] {
			byDate[p.DateKey()] = p.Value
		}
		indexed = append(indexed, byDate)
	}

	var portfolio domain.Series
	for _, p := range byTicker[tickers[0]] {
		key := p.DateKey()
		total := weights[tickers[0]] * p.Value
		matched := true
		for i, ticker := range tickers[1:] {
			v, ok := indexed[i][key]
			if !ok {
				matched = false
				break
			}
			total += weights[ticker] * v
		}
		if matched {
			portfolio = append(portfolio, domain.SeriesPoint{Date: p.Date, Value: total})
		}
	}

	return portfolio, nil
}

// Excess subtracts the risk-free rate from a portfolio return series on
// matching dates. Dates without a risk-free observation are dropped.
func Excess(portfolio, riskFree domain.Series) domain.Series {
	rfByDate := make(map[string]float64, len(riskFree))
	for _, p := range riskFree {
		rfByDate[p.DateKey()] = p.Value
	}

	var excess domain.Series
	for _, p := range portfolio {
		rf, ok := rfByDate[p.DateKey()]
		if !ok {
			continue
		}
		excess = append(excess, domain.SeriesPoint{Date: p.Date, Value: p.Value - rf})
	}
	return excess
}
