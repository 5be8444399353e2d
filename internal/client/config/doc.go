// Package config loads runtime configuration for the GophChat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config.
//  3. GOPHCHAT_* environment variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the server (http://host:port)
//	-i int      online status check interval (seconds)
//	-l string   local cache database path
//	-w string   workspace id
//	-m string   assistant model
//	-u string   assistant base URL
//	-k string   assistant API key
//
// # File schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:3001",
//	  "online_check_interval": "3s",
//	  "workspace_id": "default"
//	}
package config
