package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// DateFormat is the calendar-date layout used across the pipeline for
// source dates, ledger entries and configuration values.
const DateFormat = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	Source  SourceConfig  `yaml:"source" envconfig:"SOURCE"`
	Target  TargetConfig  `yaml:"target" envconfig:"TARGET"`
	Meta    MetaConfig    `yaml:"meta" envconfig:"META"`
	S3      S3Config      `yaml:"s3" envconfig:"S3"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// SourceConfig describes the source bucket layout: the first date worth
// extracting and the column names of the raw trading data
type SourceConfig struct {
	FirstExtractDate string   `yaml:"first_extract_date" envconfig:"FIRST_EXTRACT_DATE"`
	Columns          []string `yaml:"columns" envconfig:"COLUMNS"`
	ColISIN          string   `yaml:"col_isin" envconfig:"COL_ISIN"`
	ColDate          string   `yaml:"col_date" envconfig:"COL_DATE"`
	ColTime          string   `yaml:"col_time" envconfig:"COL_TIME"`
	ColStartPrice    string   `yaml:"col_start_price" envconfig:"COL_START_PRICE"`
	ColMinPrice      string   `yaml:"col_min_price" envconfig:"COL_MIN_PRICE"`
	ColMaxPrice      string   `yaml:"col_max_price" envconfig:"COL_MAX_PRICE"`
	ColTradedVolume  string   `yaml:"col_traded_vol" envconfig:"COL_TRADED_VOL"`
}

// TargetConfig describes the report layout: output column names, the key
// under which the report is written and its file format
type TargetConfig struct {
	ColISIN             string `yaml:"col_isin" envconfig:"COL_ISIN"`
	ColDate             string `yaml:"col_date" envconfig:"COL_DATE"`
	ColOpeningPrice     string `yaml:"col_opening_price" envconfig:"COL_OPENING_PRICE"`
	ColClosingPrice     string `yaml:"col_closing_price" envconfig:"COL_CLOSING_PRICE"`
	ColMinPrice         string `yaml:"col_min_price" envconfig:"COL_MIN_PRICE"`
	ColMaxPrice         string `yaml:"col_max_price" envconfig:"COL_MAX_PRICE"`
	ColDailyTradedVol   string `yaml:"col_daily_traded_vol" envconfig:"COL_DAILY_TRADED_VOL"`
	ColChangePrevClose  string `yaml:"col_change_prev_close" envconfig:"COL_CHANGE_PREV_CLOSE"`
	KeyPrefix           string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
	KeyDateFormat       string `yaml:"key_date_format" envconfig:"KEY_DATE_FORMAT"`
	Format              string `yaml:"format" envconfig:"FORMAT"`
}

// MetaConfig locates the meta ledger object
type MetaConfig struct {
	Key string `yaml:"key" envconfig:"KEY"`
}

// S3Config contains the object store connection settings. Endpoint and
// ForcePathStyle support S3-compatible stores (MinIO, localstack).
type S3Config struct {
	Region         string `yaml:"region" envconfig:"REGION"`
	Endpoint       string `yaml:"endpoint" envconfig:"ENDPOINT"`
	ForcePathStyle bool   `yaml:"force_path_style" envconfig:"FORCE_PATH_STYLE"`
	SourceBucket   string `yaml:"source_bucket" envconfig:"SOURCE_BUCKET"`
	TargetBucket   string `yaml:"target_bucket" envconfig:"TARGET_BUCKET"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load loads configuration from the YAML file at path (or the first
// candidate location when path is empty), then applies XETRA_-prefixed
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Environment variables take precedence over file values
	if err := envconfig.Process("XETRA", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file from the
// candidate locations, or an empty string when none exists
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"configs/xetra_report1_config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// validate validates the configuration
func (c *Config) validate() error {
	if _, err := time.Parse(DateFormat, c.Source.FirstExtractDate); err != nil {
		return fmt.Errorf("invalid source first extract date %q: %w", c.Source.FirstExtractDate, err)
	}

	if len(c.Source.Columns) == 0 {
		return fmt.Errorf("source columns must not be empty")
	}

	named := []struct {
		field string
		value string
	}{
		{"source col_isin", c.Source.ColISIN},
		{"source col_date", c.Source.ColDate},
		{"source col_time", c.Source.ColTime},
		{"source col_start_price", c.Source.ColStartPrice},
		{"source col_min_price", c.Source.ColMinPrice},
		{"source col_max_price", c.Source.ColMaxPrice},
		{"source col_traded_vol", c.Source.ColTradedVolume},
		{"target key_prefix", c.Target.KeyPrefix},
		{"target key_date_format", c.Target.KeyDateFormat},
		{"meta key", c.Meta.Key},
		{"s3 source_bucket", c.S3.SourceBucket},
		{"s3 target_bucket", c.S3.TargetBucket},
	}
	for _, n := range named {
		if n.value == "" {
			return fmt.Errorf("%s must be set", n.field)
		}
	}

	if c.Target.Format != "csv" && c.Target.Format != "parquet" {
		return fmt.Errorf("unsupported target format %q (must be csv or parquet)", c.Target.Format)
	}

	return nil
}

// Default returns the configuration for the standard daily report
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			FirstExtractDate: "2022-01-04",
			Columns: []string{
				"ISIN", "Date", "Time",
				"StartPrice", "MaxPrice", "MinPrice", "TradedVolume",
			},
			ColISIN:         "ISIN",
			ColDate:         "Date",
			ColTime:         "Time",
			ColStartPrice:   "StartPrice",
			ColMinPrice:     "MinPrice",
			ColMaxPrice:     "MaxPrice",
			ColTradedVolume: "TradedVolume",
		},
		Target: TargetConfig{
			ColISIN:            "isin",
			ColDate:            "date",
			ColOpeningPrice:    "opening_price_eur",
			ColClosingPrice:    "closing_price_eur",
			ColMinPrice:        "minimum_price_eur",
			ColMaxPrice:        "maximum_price_eur",
			ColDailyTradedVol:  "daily_traded_volume",
			ColChangePrevClose: "change_prev_closing_%",
			KeyPrefix:          "report1/xetra_daily_report1_",
			KeyDateFormat:      "20060102_150405",
			Format:             "parquet",
		},
		Meta: MetaConfig{
			Key: "meta_file.csv",
		},
		S3: S3Config{
			Region: "eu-central-1",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/etl.log",
		},
	}
}
