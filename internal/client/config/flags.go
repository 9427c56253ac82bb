package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the key-value server
//	-k string   path to the cached server public key file
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so other components' flags never collide with these.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "address and port of the key-value server")
	fs.StringVar(&cfg.PubKeyCacheFile, "k", cfg.PubKeyCacheFile, "path to the cached server public key file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
