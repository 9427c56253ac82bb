// Package server wires configuration, the RSA keypair, the storage
// facade, and the listener/worker pool into a runnable key-value server,
// and handles graceful shutdown.
package server

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
	"github.com/dmitrijs2005/gophkeeper/internal/logging"
	"github.com/dmitrijs2005/gophkeeper/internal/server/config"
	"github.com/dmitrijs2005/gophkeeper/internal/server/listenpool"
	"github.com/dmitrijs2005/gophkeeper/internal/server/protocol"
	"github.com/dmitrijs2005/gophkeeper/internal/server/storage"
)

// queueDepth bounds how many accepted connections may wait for a free
// worker before the acceptor blocks.
const queueDepth = 64

// App is the fully wired server: a loaded keypair, an open storage
// facade, and a listener/worker pool tying them together via the protocol
// package's per-connection state machine.
type App struct {
	config *config.Config
	logger logging.Logger

	priv *rsa.PrivateKey
	pub  *rsa.PublicKey

	store *storage.Storage
	pool  *listenpool.Pool
}

// NewApp loads or generates the RSA keypair, opens the persistence log,
// and binds the listener, returning a ready-to-Run App.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	priv, pubPEM, err := cryptox.LoadOrGenerateKeyPair(c.KeyFileBasename)
	if err != nil {
		return nil, fmt.Errorf("server: loading key pair: %w", err)
	}
	pub, err := cryptox.DecodePublicKeyPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("server: decoding generated public key: %w", err)
	}

	store, err := storage.Open(c.DataFile, storage.Config{
		Buckets:       c.Buckets,
		TopSize:       c.TopSize,
		AdminUsername: c.AdminUsername,
		PluginDir:     c.DataFile + ".plugins",
		Quota: storage.QuotaSpec{
			UploadAmount:   c.UploadQuota,
			DownloadAmount: c.DownloadQuota,
			RequestAmount:  c.RequestQuota,
			Duration:       time.Duration(c.QuotaIntervalSeconds) * time.Second,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("server: opening storage: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", c.Port))
	if err != nil {
		store.Shutdown()
		return nil, fmt.Errorf("server: listening on port %d: %w", c.Port, err)
	}

	app := &App{config: c, logger: logger, priv: priv, pub: pub, store: store}
	app.pool = listenpool.New(listener, c.Threads, queueDepth, app.handleConnection, logger)
	return app, nil
}

func (app *App) handleConnection(ctx context.Context, conn net.Conn) (bool, error) {
	return protocol.HandleConnection(ctx, conn, app.priv, app.pub, app.store, app.logger)
}

func (app *App) initSignalHandler() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		app.pool.Shutdown()
	}()
}

// Run blocks until a client sends an authenticated BYE (or the process
// receives a termination signal), drains the worker pool, and then
// flushes and closes the persistence log. Mirrors the reference
// server.cc's accept_client → pool.await_shutdown() → storage.shutdown()
// ordering: storage is never closed while a worker could still be
// writing to it.
func (app *App) Run(ctx context.Context) {
	app.logger.Info(ctx, "starting server", "port", app.config.Port, "threads", app.config.Threads)

	app.initSignalHandler()
	app.pool.Run(ctx)

	if err := app.store.Shutdown(); err != nil {
		app.logger.Error(ctx, "server: storage shutdown failed", "err", err)
	}
	app.logger.Info(ctx, "server terminated")
}
