// Package config handles configuration for the server component: defaults,
// an optional JSON or YAML file, GOPHCHAT_* environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"time"
)

// Config holds runtime settings for the GophChat server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the REST API.
//   - DatabaseDSN: SQLite DSN (file path or file: URI).
//   - SecretKey: HMAC key used to sign new access tokens (HS256).
//   - PreviousSecretKeys: retired keys still accepted for verification.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - ExportLinkValidityDuration: lifetime of presigned transcript links.
//   - S3*: object storage for transcript export. Empty bucket disables export.
type Config struct {
	EndpointAddrHTTP             string
	DatabaseDSN                  string
	SecretKey                    string
	PreviousSecretKeys           []string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	ExportLinkValidityDuration   time.Duration
	S3RootUser                   string
	S3RootPassword               string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
	LogLevel                     string
}

var (
	ErrNoSecretKey   = errors.New("secret key is not configured")
	ErrShortSecret   = errors.New("secret key must be at least 16 bytes")
	ErrNoDatabaseDSN = errors.New("database DSN is not configured")
)

const minSecretKeyLen = 16

// LoadDefaults populates Config with development defaults. There is no
// default signing key; one must come from a file, the environment or flags.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":3001"
	c.DatabaseDSN = "gophchat.db"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.ExportLinkValidityDuration = 15 * time.Minute
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrNoSecretKey
	}
	if len(c.SecretKey) < minSecretKeyLen {
		return ErrShortSecret
	}
	for _, k := range c.PreviousSecretKeys {
		if len(k) < minSecretKeyLen {
			return ErrShortSecret
		}
	}
	if c.DatabaseDSN == "" {
		return ErrNoDatabaseDSN
	}
	return nil
}

// ExportEnabled reports whether transcript export has a bucket to write to.
func (c *Config) ExportEnabled() bool {
	return c.S3Bucket != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
