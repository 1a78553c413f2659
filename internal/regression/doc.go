// Package regression implements the rolling multivariate OLS engine behind
// the factor dashboard. It aligns a dependent return series with named factor
// series on date, then refits an ordinary least squares model on every
// trailing fixed-size window, producing per-window coefficients, standard
// errors, t-statistics, p-values and R-squared.
//
// The engine is stateless and synchronous: each Fit call is independent and
// every window is refit from scratch rather than updated incrementally.
package regression
