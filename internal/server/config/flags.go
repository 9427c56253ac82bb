package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags, matching the
// switches the process surface defines: -p port, -f datafile, -k
// keyfile_basename, -t threads, -b buckets, -i quota_interval, -u
// upload_quota, -d download_quota, -r request_quota, -o top_size, -a
// admin_username, -h help.
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so other components' flags never collide with these.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-p", "-f", "-k", "-t", "-b", "-i", "-u", "-d", "-r", "-o", "-a", "-h",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.IntVar(&config.Port, "p", config.Port, "TCP port to listen on")
	fs.StringVar(&config.DataFile, "f", config.DataFile, "path to the persistence data file")
	fs.StringVar(&config.KeyFileBasename, "k", config.KeyFileBasename, "RSA keypair file basename")
	fs.IntVar(&config.Threads, "t", config.Threads, "worker pool size")
	fs.IntVar(&config.Buckets, "b", config.Buckets, "number of hash table buckets")
	fs.IntVar(&config.QuotaIntervalSeconds, "i", config.QuotaIntervalSeconds, "quota sliding-window duration, seconds")
	fs.Int64Var(&config.UploadQuota, "u", config.UploadQuota, "upload quota, bytes per window")
	fs.Int64Var(&config.DownloadQuota, "d", config.DownloadQuota, "download quota, bytes per window")
	fs.Int64Var(&config.RequestQuota, "r", config.RequestQuota, "request quota, requests per window")
	fs.IntVar(&config.TopSize, "o", config.TopSize, "MRU index capacity")
	fs.StringVar(&config.AdminUsername, "a", config.AdminUsername, "admin username")
	fs.BoolVar(&config.Help, "h", config.Help, "print usage and exit")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
