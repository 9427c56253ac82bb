package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophkeeper/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files; its fields are copied into Config after
// unmarshalling.
type JsonConfig struct {
	ServerAddr      string `json:"server_addr"`
	PubKeyCacheFile string `json:"pub_key_cache_file"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The lookup order for the JSON file path is the -c or -config
// command-line flags; if neither is set, no JSON file is loaded and
// parseJson is a no-op.
//
// If the file cannot be read or contains invalid JSON, parseJson panics:
// an explicitly requested config file that can't be loaded is a startup
// error, not a silently-ignored one.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerAddr = jc.ServerAddr
	cfg.PubKeyCacheFile = jc.PubKeyCacheFile
}
