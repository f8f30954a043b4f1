// Package dataprocessing transforms raw per-trade source rows into the
// per-instrument daily report.
package dataprocessing
