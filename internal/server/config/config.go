// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the key-value server.
//
// Fields:
//   - Port: TCP port the listener binds to.
//   - DataFile: path to the persistence log.
//   - KeyFileBasename: basename for the <basename>.pub/<basename>.pri RSA
//     keypair; generated on first run if neither file exists.
//   - Threads: size of the worker pool.
//   - Buckets: number of shards in the auth table and the KV store.
//   - QuotaIntervalSeconds: sliding-window duration shared by all three
//     quota trackers.
//   - UploadQuota / DownloadQuota / RequestQuota: per-window maximums for
//     KV writes, KV reads, and total chargeable requests, respectively.
//   - TopSize: capacity of the MRU index.
//   - AdminUsername: the one user permitted to run SAV and REGMR.
type Config struct {
	Port                 int
	DataFile             string
	KeyFileBasename      string
	Threads              int
	Buckets              int
	QuotaIntervalSeconds int
	UploadQuota          int64
	DownloadQuota        int64
	RequestQuota         int64
	TopSize              int
	AdminUsername        string
	Help                 bool
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.Port = 9000
	c.DataFile = "kvserver.dat"
	c.KeyFileBasename = "kvserver_key"
	c.Threads = 8
	c.Buckets = 16
	c.QuotaIntervalSeconds = 60
	c.UploadQuota = 1 << 20
	c.DownloadQuota = 1 << 20
	c.RequestQuota = 10000
	c.TopSize = 8
	c.AdminUsername = "admin"
	c.Help = false
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
