package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the extractor.
type Config struct {
	Salesforce SalesforceConfig `yaml:"salesforce"`
	Extract    ExtractConfig    `yaml:"extract"`
	Bulk       BulkConfig       `yaml:"bulk"`
	Output     OutputConfig     `yaml:"output"`
	Upload     UploadConfig     `yaml:"upload"`
}

// SalesforceConfig holds Salesforce API credentials and connection settings.
type SalesforceConfig struct {
	LoginURL       string `yaml:"login_url"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	SecurityToken  string `yaml:"security_token"`
	APIVersion     string `yaml:"api_version"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout as a duration.
func (c SalesforceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExtractConfig holds the fan-out and paging settings.
type ExtractConfig struct {
	Workers     int `yaml:"workers"`      // concurrent object extractions
	PageRetries int `yaml:"page_retries"` // HTTP retries per page fetch
}

// BulkConfig holds the Bulk API job polling parameters.
type BulkConfig struct {
	PollIntervalSeconds    int `yaml:"poll_interval_seconds"`     // first poll delay
	PollMaxIntervalSeconds int `yaml:"poll_max_interval_seconds"` // backoff cap
	WaitBudgetSeconds      int `yaml:"wait_budget_seconds"`       // total wait before abandoning a job
	BatchRecords           int `yaml:"batch_records"`             // maxRecords per result batch
}

// PollInterval returns the initial status poll interval.
func (c BulkConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollMaxInterval returns the backoff cap for status polling.
func (c BulkConfig) PollMaxInterval() time.Duration {
	return time.Duration(c.PollMaxIntervalSeconds) * time.Second
}

// WaitBudget returns the total time a job may stay non-terminal before it is
// abandoned.
func (c BulkConfig) WaitBudget() time.Duration {
	return time.Duration(c.WaitBudgetSeconds) * time.Second
}

// OutputConfig holds the output directory settings.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// UploadConfig holds optional S3 upload settings for produced files.
type UploadConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Defaults
	if cfg.Salesforce.LoginURL == "" {
		cfg.Salesforce.LoginURL = "https://login.salesforce.com"
	}
	if cfg.Salesforce.APIVersion == "" {
		cfg.Salesforce.APIVersion = "v59.0"
	}
	if cfg.Salesforce.TimeoutSeconds == 0 {
		cfg.Salesforce.TimeoutSeconds = 60
	}
	if cfg.Extract.Workers == 0 {
		cfg.Extract.Workers = 4
	}
	if cfg.Extract.PageRetries == 0 {
		cfg.Extract.PageRetries = 3
	}
	if cfg.Bulk.PollIntervalSeconds == 0 {
		cfg.Bulk.PollIntervalSeconds = 5
	}
	if cfg.Bulk.PollMaxIntervalSeconds == 0 {
		cfg.Bulk.PollMaxIntervalSeconds = 60
	}
	if cfg.Bulk.WaitBudgetSeconds == 0 {
		cfg.Bulk.WaitBudgetSeconds = 1800
	}
	if cfg.Bulk.BatchRecords == 0 {
		cfg.Bulk.BatchRecords = 10000
	}
	if cfg.Output.Path == "" {
		cfg.Output.Path = "./output"
	}
	if cfg.Upload.Region == "" {
		cfg.Upload.Region = "us-east-1"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides for
// credentials. A .env file (if present) is loaded first, so secrets can live
// in .env locally and in real env vars on a scheduler host.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SF_LOGIN_URL"); v != "" {
		cfg.Salesforce.LoginURL = v
	}
	if v := os.Getenv("SF_CLIENT_ID"); v != "" {
		cfg.Salesforce.ClientID = v
	}
	if v := os.Getenv("SF_CLIENT_SECRET"); v != "" {
		cfg.Salesforce.ClientSecret = v
	}
	if v := os.Getenv("SF_USERNAME"); v != "" {
		cfg.Salesforce.Username = v
	}
	if v := os.Getenv("SF_PASSWORD"); v != "" {
		cfg.Salesforce.Password = v
	}
	if v := os.Getenv("SF_SECURITY_TOKEN"); v != "" {
		cfg.Salesforce.SecurityToken = v
	}
	if v := os.Getenv("UPLOAD_S3_BUCKET"); v != "" {
		cfg.Upload.Bucket = v
	}
	if v := os.Getenv("UPLOAD_S3_REGION"); v != "" {
		cfg.Upload.Region = v
	}

	return cfg, nil
}
