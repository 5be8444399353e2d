package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for decoding config files.
// It relies on timex.Duration so files can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type FileConfig struct {
	ServerURL           string         `json:"server_url" yaml:"server_url"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LocalDBPath         string         `json:"local_db_path" yaml:"local_db_path"`
	WorkspaceID         string         `json:"workspace_id" yaml:"workspace_id"`
	AssistantModel      string         `json:"assistant_model" yaml:"assistant_model"`
	AssistantBaseURL    string         `json:"assistant_base_url" yaml:"assistant_base_url"`
	AssistantAPIKey     string         `json:"assistant_api_key" yaml:"assistant_api_key"`
}

// parseFile overlays Config with values loaded from the file named by -c or
// -config. Files ending in .yaml or .yml are decoded as YAML, everything else
// as JSON. Panics on read or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(cfg)
}

func (c *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, c.ServerURL)
	if c.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = c.OnlineCheckInterval.Duration
	}
	if c.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = c.RequestTimeout.Duration
	}
	setString(&cfg.LocalDBPath, c.LocalDBPath)
	setString(&cfg.WorkspaceID, c.WorkspaceID)
	setString(&cfg.AssistantModel, c.AssistantModel)
	setString(&cfg.AssistantBaseURL, c.AssistantBaseURL)
	setString(&cfg.AssistantAPIKey, c.AssistantAPIKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
