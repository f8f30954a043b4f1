// Package store implements the object store gateway: listing keys by
// prefix, reading keyed objects as tabular data and writing tables back
// in CSV or Parquet encoding. The S3 implementation is the only one; the
// core packages depend on the Gateway interface.
package store
