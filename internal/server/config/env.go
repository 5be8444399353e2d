package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

const envPrefix = "GOPHCHAT_"

// parseEnv overlays GOPHCHAT_* variables. Keeping the signing key in the
// environment avoids exposing it in the process list.
func parseEnv(config *Config) {
	lookup := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	lookup("HTTP_ADDR", &config.EndpointAddrHTTP)
	lookup("DATABASE_DSN", &config.DatabaseDSN)
	lookup("SECRET_KEY", &config.SecretKey)
	lookup("S3_ROOT_USER", &config.S3RootUser)
	lookup("S3_ROOT_PASSWORD", &config.S3RootPassword)
	lookup("S3_BUCKET", &config.S3Bucket)
	lookup("S3_REGION", &config.S3Region)
	lookup("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	lookup("LOG_LEVEL", &config.LogLevel)

	var prev string
	lookup("PREVIOUS_SECRET_KEYS", &prev)
	if keys := flagx.SplitList(prev); len(keys) > 0 {
		config.PreviousSecretKeys = keys
	}

	lookupDuration := func(name string, dst *time.Duration) {
		var raw string
		lookup(name, &raw)
		if raw == "" {
			return
		}
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			*dst = d
		}
	}
	lookupDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	lookupDuration("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	lookupDuration("EXPORT_LINK_TTL", &config.ExportLinkValidityDuration)
}
