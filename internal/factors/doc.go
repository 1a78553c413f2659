// Package factors downloads and parses Fama-French factor archives. The
// source publishes a zip containing one delimited file: a textual preamble
// of known length, a header row naming the factor columns, daily rows keyed
// by an 8-digit YYYYMMDD date with returns expressed as percentages, and a
// trailing risk-free-rate column (RF). Values are rescaled to decimals at
// ingest, before anything downstream sees them.
package factors
