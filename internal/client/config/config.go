// Package config handles configuration for the CLI client, including
// defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the key-value server CLI.
//
// Fields:
//   - ServerAddr: host:port of the key-value server.
//   - PubKeyCacheFile: path where the server's RSA public key is cached
//     after the first KEY bootstrap fetch, so later runs can skip it.
type Config struct {
	ServerAddr      string
	PubKeyCacheFile string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:9000"
	c.PubKeyCacheFile = "kvclient_server.pub"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
