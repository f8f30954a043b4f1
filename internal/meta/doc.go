// Package meta tracks which source dates have already been processed.
//
// The meta file is a two-column CSV object (source date, processing
// timestamp) maintained as an append-only log: each run rewrites the
// whole object with the old rows first and its newly processed dates
// appended. Duplicate dates may accumulate and are tolerated on read.
package meta
