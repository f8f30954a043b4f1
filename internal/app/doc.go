// Package app assembles the report job from configuration: logger, S3
// buckets, meta ledger, aggregator and pipeline. cmd/etl is a thin shell
// around it.
package app
