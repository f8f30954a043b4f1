// Package pipeline orchestrates one batch ETL invocation over the
// source bucket, the aggregation engine, the target bucket and the meta
// ledger.
package pipeline
