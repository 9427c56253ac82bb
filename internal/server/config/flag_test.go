package config

import (
	"flag"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-p", "9090", "-f", "data.dat", "-k", "keybase",
			"-t", "4", "-b", "32", "-i", "120",
			"-u", "2048", "-d", "4096", "-r", "50",
			"-o", "16", "-a", "root",
		}, expectPanic: false,
			expected: &Config{
				Port:                 9090,
				DataFile:             "data.dat",
				KeyFileBasename:      "keybase",
				Threads:              4,
				Buckets:              32,
				QuotaIntervalSeconds: 120,
				UploadQuota:          2048,
				DownloadQuota:        4096,
				RequestQuota:         50,
				TopSize:              16,
				AdminUsername:        "root",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
