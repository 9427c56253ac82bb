// Package config loads runtime configuration for the key-value server CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the key-value server
//	-k string   path to the cached server public key file
//
// # JSON schema
//
//	{
//	  "server_addr": "127.0.0.1:9000",
//	  "pub_key_cache_file": "kvclient_server.pub"
//	}
//
// Primary API
//
//   - type Config                     — holds ServerAddr and PubKeyCacheFile
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
