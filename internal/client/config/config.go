package config

import "time"

// Config holds runtime settings for the GophChat CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - LocalDBPath: SQLite file used as the offline cache.
//   - WorkspaceID: workspace opened on start.
//   - AssistantModel / AssistantBaseURL / AssistantAPIKey: OpenAI-compatible
//     chat completions endpoint. Without a key replies are echoed locally.
type Config struct {
	ServerURL           string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	LocalDBPath         string
	WorkspaceID         string
	AssistantModel      string
	AssistantBaseURL    string
	AssistantAPIKey     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3001"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.LocalDBPath = "gophchat-cache.db"
	c.WorkspaceID = "default"
	c.AssistantModel = "deepseek/deepseek-chat:free"
	c.AssistantBaseURL = "https://openrouter.ai/api/v1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file, the environment and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
