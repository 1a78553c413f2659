// Package exporter writes rolling regression results to CSV and Excel files.
//
// CSVWriter is the low-level writer with UTF-8 BOM and streaming support.
// ResultsExporter sits on top of it and knows the column layout for a
// regression run: one row per window end date, four columns per factor
// (estimate, standard error, t-statistic, p-value) plus the intercept and
// fit diagnostics.
package exporter
