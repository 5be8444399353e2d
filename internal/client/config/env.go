package config

import (
	"os"
	"time"
)

const envPrefix = "GOPHCHAT_"

// parseEnv overlays GOPHCHAT_* variables. The assistant key is usually
// supplied this way rather than on the command line.
func parseEnv(cfg *Config) {
	lookup := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	lookup("SERVER_URL", &cfg.ServerURL)
	lookup("LOCAL_DB", &cfg.LocalDBPath)
	lookup("WORKSPACE", &cfg.WorkspaceID)
	lookup("ASSISTANT_MODEL", &cfg.AssistantModel)
	lookup("ASSISTANT_BASE_URL", &cfg.AssistantBaseURL)
	lookup("ASSISTANT_API_KEY", &cfg.AssistantAPIKey)

	var raw string
	lookup("REQUEST_TIMEOUT", &raw)
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		cfg.RequestTimeout = d
	}
}
