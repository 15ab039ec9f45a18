// Package config loads server configuration from an optional TOML file plus
// EVALVAULT_* environment variables. Environment values win over the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Backend   string // EVALVAULT_BACKEND: "s3", "postgres", or "fs" (default "fs")
	HTTPAddr  string // EVALVAULT_HTTP_ADDR (default ":8080")
	NATSURL   string // EVALVAULT_NATS_URL (optional, empty = no events)
	AuthToken string // EVALVAULT_AUTH_TOKEN (optional, empty = admin auth disabled)

	// fs backend
	DataDir string // EVALVAULT_DATA_DIR (default "data")

	// postgres backend
	DatabaseURL string // EVALVAULT_DATABASE_URL (required for postgres)

	// s3 backend
	S3Bucket   string // EVALVAULT_S3_BUCKET (required for s3)
	S3Prefix   string // EVALVAULT_S3_PREFIX (default "evalvault/")
	S3Region   string // EVALVAULT_S3_REGION (default "us-east-1")
	S3Endpoint string // EVALVAULT_S3_ENDPOINT (custom endpoint for MinIO)

	// Append retry settings
	RetryAttempts  int           // EVALVAULT_RETRY_ATTEMPTS (default 3)
	RetryBaseDelay time.Duration // EVALVAULT_RETRY_BASE_DELAY (default 100ms)
	RetryMaxDelay  time.Duration // EVALVAULT_RETRY_MAX_DELAY (default 2s)
}

// fileConfig mirrors Config with TOML tags for the optional config file.
type fileConfig struct {
	Backend   string `toml:"backend"`
	HTTPAddr  string `toml:"http_addr"`
	NATSURL   string `toml:"nats_url"`
	AuthToken string `toml:"auth_token"`

	DataDir     string `toml:"data_dir"`
	DatabaseURL string `toml:"database_url"`

	S3Bucket   string `toml:"s3_bucket"`
	S3Prefix   string `toml:"s3_prefix"`
	S3Region   string `toml:"s3_region"`
	S3Endpoint string `toml:"s3_endpoint"`

	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBaseDelay string `toml:"retry_base_delay"`
	RetryMaxDelay  string `toml:"retry_max_delay"`
}

// Load builds the configuration. When EVALVAULT_CONFIG_FILE points at a TOML
// file its values seed the config; environment variables override them.
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("EVALVAULT_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	c := &Config{
		Backend:     firstOf(os.Getenv("EVALVAULT_BACKEND"), fc.Backend, "fs"),
		HTTPAddr:    firstOf(os.Getenv("EVALVAULT_HTTP_ADDR"), fc.HTTPAddr, ":8080"),
		NATSURL:     firstOf(os.Getenv("EVALVAULT_NATS_URL"), fc.NATSURL, ""),
		AuthToken:   firstOf(os.Getenv("EVALVAULT_AUTH_TOKEN"), fc.AuthToken, ""),
		DataDir:     firstOf(os.Getenv("EVALVAULT_DATA_DIR"), fc.DataDir, "data"),
		DatabaseURL: firstOf(os.Getenv("EVALVAULT_DATABASE_URL"), fc.DatabaseURL, ""),
		S3Bucket:    firstOf(os.Getenv("EVALVAULT_S3_BUCKET"), fc.S3Bucket, ""),
		S3Prefix:    firstOf(os.Getenv("EVALVAULT_S3_PREFIX"), fc.S3Prefix, "evalvault/"),
		S3Region:    firstOf(os.Getenv("EVALVAULT_S3_REGION"), fc.S3Region, "us-east-1"),
		S3Endpoint:  firstOf(os.Getenv("EVALVAULT_S3_ENDPOINT"), fc.S3Endpoint, ""),
	}

	attempts := firstOf(os.Getenv("EVALVAULT_RETRY_ATTEMPTS"), "", "")
	switch {
	case attempts != "":
		if _, err := fmt.Sscanf(attempts, "%d", &c.RetryAttempts); err != nil || c.RetryAttempts < 1 {
			return nil, fmt.Errorf("EVALVAULT_RETRY_ATTEMPTS: invalid value %q", attempts)
		}
	case fc.RetryAttempts > 0:
		c.RetryAttempts = fc.RetryAttempts
	default:
		c.RetryAttempts = 3
	}

	var err error
	c.RetryBaseDelay, err = durationSetting("EVALVAULT_RETRY_BASE_DELAY", fc.RetryBaseDelay, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	c.RetryMaxDelay, err = durationSetting("EVALVAULT_RETRY_MAX_DELAY", fc.RetryMaxDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}

	switch c.Backend {
	case "fs":
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("EVALVAULT_DATABASE_URL is required for the postgres backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return nil, fmt.Errorf("EVALVAULT_S3_BUCKET is required for the s3 backend")
		}
	default:
		return nil, fmt.Errorf("EVALVAULT_BACKEND: unknown backend %q", c.Backend)
	}

	return c, nil
}

func durationSetting(envKey, fileVal string, fallback time.Duration) (time.Duration, error) {
	raw := firstOf(os.Getenv(envKey), fileVal, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", envKey, err)
	}
	return d, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
