// Package services holds the business logic between the HTTP transport and
// the data/regression packages. RegressionService orchestrates a full run:
// fetch prices and factors, build the excess-return series, fit the rolling
// regression, cache the result, and notify websocket clients. HealthService
// reports liveness and runtime statistics for the dashboard.
package services
