// Package config loads and validates the ETL configuration.
//
// Configuration is read from a YAML file and can be overridden field by
// field through XETRA_-prefixed environment variables, e.g.
// XETRA_S3_SOURCE_BUCKET or XETRA_SOURCE_FIRST_EXTRACT_DATE. Validation
// happens once at load; components receive immutable value copies.
package config
