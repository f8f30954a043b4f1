package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "2022-01-04", cfg.Source.FirstExtractDate)
	assert.Equal(t, "ISIN", cfg.Source.ColISIN)
	assert.Equal(t, "parquet", cfg.Target.Format)
	assert.Equal(t, "meta_file.csv", cfg.Meta.Key)

	// Defaults validate once deployment-specific buckets are filled in
	cfg.S3.SourceBucket = "xetra-src"
	cfg.S3.TargetBucket = "xetra-trg"
	assert.NoError(t, cfg.validate())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
source:
  first_extract_date: "2022-03-01"
target:
  format: csv
s3:
  source_bucket: src-bucket
  target_bucket: trg-bucket
  region: us-east-1
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2022-03-01", cfg.Source.FirstExtractDate)
	assert.Equal(t, "csv", cfg.Target.Format)
	assert.Equal(t, "src-bucket", cfg.S3.SourceBucket)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	// Untouched fields keep defaults
	assert.Equal(t, "report1/xetra_daily_report1_", cfg.Target.KeyPrefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
s3:
  source_bucket: src-bucket
  target_bucket: trg-bucket
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Setenv("XETRA_S3_SOURCE_BUCKET", "env-bucket")
	t.Setenv("XETRA_SOURCE_FIRST_EXTRACT_DATE", "2023-06-15")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-bucket", cfg.S3.SourceBucket)
	assert.Equal(t, "2023-06-15", cfg.Source.FirstExtractDate)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad first extract date",
			mutate:  func(c *Config) { c.Source.FirstExtractDate = "04.01.2022" },
			wantErr: "invalid source first extract date",
		},
		{
			name:    "empty source columns",
			mutate:  func(c *Config) { c.Source.Columns = nil },
			wantErr: "source columns must not be empty",
		},
		{
			name:    "missing meta key",
			mutate:  func(c *Config) { c.Meta.Key = "" },
			wantErr: "meta key must be set",
		},
		{
			name:    "missing source bucket",
			mutate:  func(c *Config) { c.S3.SourceBucket = "" },
			wantErr: "s3 source_bucket must be set",
		},
		{
			name:    "unsupported format",
			mutate:  func(c *Config) { c.Target.Format = "xlsx" },
			wantErr: "unsupported target format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.S3.SourceBucket = "src"
			cfg.S3.TargetBucket = "trg"
			tt.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
