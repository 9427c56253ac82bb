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
	Port                 int    `json:"port"`
	DataFile             string `json:"data_file"`
	KeyFileBasename      string `json:"key_file_basename"`
	Threads              int    `json:"threads"`
	Buckets              int    `json:"buckets"`
	QuotaIntervalSeconds int    `json:"quota_interval_seconds"`
	UploadQuota          int64  `json:"upload_quota"`
	DownloadQuota        int64  `json:"download_quota"`
	RequestQuota         int64  `json:"request_quota"`
	TopSize              int    `json:"top_size"`
	AdminUsername        string `json:"admin_username"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config
// command-line flags; if neither is set, no JSON file is loaded and
// parseJson is a no-op.
//
// If the file cannot be read or contains invalid JSON, parseJson panics:
// an explicitly requested config file that can't be loaded is a startup
// error, not a silently-ignored one.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.Port = c.Port
	config.DataFile = c.DataFile
	config.KeyFileBasename = c.KeyFileBasename
	config.Threads = c.Threads
	config.Buckets = c.Buckets
	config.QuotaIntervalSeconds = c.QuotaIntervalSeconds
	config.UploadQuota = c.UploadQuota
	config.DownloadQuota = c.DownloadQuota
	config.RequestQuota = c.RequestQuota
	config.TopSize = c.TopSize
	config.AdminUsername = c.AdminUsername
}
