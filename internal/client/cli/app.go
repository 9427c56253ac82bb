package cli

import (
	"bufio"
	"context"
	"crypto/rsa"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/gophkeeper/internal/client/config"
	"github.com/dmitrijs2005/gophkeeper/internal/client/wireclient"
	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
)

// App is the interactive command-line client: a wire connection to one
// key-value server plus the credentials of whichever user last logged in.
// Unlike the original session-oriented client, there is no persistent
// server-side session to hold open — every command re-authenticates, so
// App's job is simply to remember the username/password pair and repeat it.
type App struct {
	config   *config.Config
	wire     *wireclient.Client
	userName string
	password string
	reader   *bufio.Reader
}

// NewApp loads the server's public key (from the cache file if present,
// otherwise via a fresh KEY bootstrap fetch, which it then caches) and
// returns an App ready to run its REPL.
func NewApp(c *config.Config) (*App, error) {
	wire, err := dialWithCachedKey(c)
	if err != nil {
		return nil, fmt.Errorf("cli: connecting to %s: %w", c.ServerAddr, err)
	}
	return &App{config: c, wire: wire, reader: bufio.NewReader(os.Stdin)}, nil
}

func dialWithCachedKey(c *config.Config) (*wireclient.Client, error) {
	if pub, err := loadCachedPublicKey(c.PubKeyCacheFile); err == nil {
		return wireclient.NewWithKey(c.ServerAddr, pub), nil
	}

	client, err := wireclient.New(c.ServerAddr)
	if err != nil {
		return nil, err
	}
	if err := saveCachedPublicKey(c.PubKeyCacheFile, client.PublicKey()); err != nil {
		log.Printf("cli: caching server public key failed: %v", err)
	}
	return client, nil
}

func loadCachedPublicKey(path string) (*rsa.PublicKey, error) {
	if path == "" {
		return nil, fmt.Errorf("cli: no public key cache file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cryptox.DecodePublicKeyPEM(data)
}

func saveCachedPublicKey(path string, pub *rsa.PublicKey) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, cryptox.EncodePublicKeyPEM(pub), 0o644)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// Run starts the REPL and blocks until the user exits or issues an
// authenticated BYE.
func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
