package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the kindersync client.
//
// The cloud fields describe the OSS-style object store holding the shared
// collections. When any of Endpoint, Region, Bucket, AccessKeyID or
// AccessKeySecret is empty, the whole sync subsystem is disabled and every
// sync call short-circuits with common.ErrorNotConfigured.
type Config struct {
	// Endpoint is the bucket base URL, e.g. https://venus-data.oss-cn-beijing.aliyuncs.com.
	Endpoint string
	// Region of the bucket, e.g. oss-cn-beijing.
	Region string
	// Bucket name.
	Bucket string
	// AccessKeyID / AccessKeySecret form the symmetric credential pair used
	// both for signed GET URLs and for credentialed PUTs.
	AccessKeyID     string
	AccessKeySecret string
	// Prefix is prepended to every collection object key ("{prefix}/{key}.json").
	Prefix string

	// DatabaseDSN locates the local SQLite cache.
	DatabaseDSN string

	// PublicTimeout bounds the unauthenticated GET attempt.
	PublicTimeout time.Duration
	// SignedTimeout bounds each signed-URL GET attempt.
	SignedTimeout time.Duration
	// AttemptPause is the wait between fallback attempts.
	AttemptPause time.Duration
	// CollectionPause is the wait between collections in bulk sync operations.
	CollectionPause time.Duration

	// SessionSecret signs local session tokens issued after OTP verification.
	SessionSecret string
	// SessionTTL is the session token validity window.
	SessionTTL time.Duration

	// BrokerURL is the phone-number exchange cloud function, empty to disable.
	BrokerURL string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Prefix = "jinxing-edu"
	c.DatabaseDSN = "kindersync.db"
	c.PublicTimeout = 10 * time.Second
	c.SignedTimeout = 15 * time.Second
	c.AttemptPause = 200 * time.Millisecond
	c.CollectionPause = 300 * time.Millisecond
	c.SessionTTL = 30 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// IsConfigured reports whether the remote store credentials are complete.
func (c *Config) IsConfigured() bool {
	return c.Endpoint != "" &&
		c.Region != "" &&
		c.Bucket != "" &&
		c.AccessKeyID != "" &&
		c.AccessKeySecret != ""
}

// parseEnv overlays credential fields from the environment. Credentials are
// kept out of JSON config files and flags by default.
func parseEnv(cfg *Config) {
	if v := os.Getenv("KINDERSYNC_ACCESS_KEY_ID"); v != "" {
		cfg.AccessKeyID = v
	}
	if v := os.Getenv("KINDERSYNC_ACCESS_KEY_SECRET"); v != "" {
		cfg.AccessKeySecret = v
	}
	if v := os.Getenv("KINDERSYNC_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
}
