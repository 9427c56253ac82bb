// Package listenpool implements the acceptor-plus-fixed-worker-pool
// architecture of spec.md §4.6: one goroutine accepts connections onto a
// bounded queue, a fixed number of long-lived workers dequeue and run the
// per-connection handler, and any worker reporting an authenticated BYE
// triggers cooperative shutdown of the whole pool.
package listenpool

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/gophkeeper/internal/logging"
)

// Handler processes one accepted connection (closing it before returning)
// and reports whether it was an authenticated BYE that should trigger
// shutdown of the pool.
type Handler func(ctx context.Context, conn net.Conn) (shutdown bool, err error)

// Pool is a fixed-size worker pool fed by one acceptor goroutine.
type Pool struct {
	listener net.Listener
	workers  int
	handler  Handler
	logger   logging.Logger

	queue        chan net.Conn
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New constructs a Pool with the given number of long-lived workers and a
// queue of the given depth, serving accepted connections from listener.
func New(listener net.Listener, workers, queueDepth int, handler Handler, logger logging.Logger) *Pool {
	return &Pool{
		listener:   listener,
		workers:    workers,
		handler:    handler,
		logger:     logger,
		queue:      make(chan net.Conn, queueDepth),
		shutdownCh: make(chan struct{}),
	}
}

// Run starts the acceptor and worker goroutines and blocks until shutdown
// has been triggered (by a handler reporting shutdown=true, or by a call
// to Shutdown) and every already-accepted connection has finished -
// mirroring the reference's pool.await_shutdown() then storage.shutdown()
// ordering, so the caller can safely close the storage layer once Run
// returns.
func (p *Pool) Run(ctx context.Context) {
	var workersWg sync.WaitGroup
	workersWg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer workersWg.Done()
			p.runWorker(ctx)
		}()
	}

	p.acceptLoop(ctx)
	close(p.queue)
	workersWg.Wait()
}

// Shutdown triggers the same cooperative drain a BYE would, for external
// callers (signal handling, tests) that need to stop the pool without a
// client connection.
func (p *Pool) Shutdown() {
	p.triggerShutdown()
}

func (p *Pool) acceptLoop(ctx context.Context) {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.shutdownCh:
				// Expected: triggerShutdown closed the listener.
			default:
				if p.logger != nil {
					p.logger.Warn(ctx, "listenpool: accept failed", "err", err)
				}
			}
			return
		}

		select {
		case p.queue <- conn:
		case <-p.shutdownCh:
			conn.Close()
			return
		}
	}
}

func (p *Pool) runWorker(ctx context.Context) {
	for conn := range p.queue {
		shutdown, err := p.handler(ctx, conn)
		if err != nil && p.logger != nil {
			p.logger.Warn(ctx, "listenpool: connection handler failed", "err", err)
		}
		if shutdown {
			p.triggerShutdown()
		}
	}
}

// triggerShutdown closes the listener, unblocking Accept with an error, and
// signals the acceptor loop to stop enqueueing. Safe to call more than
// once or concurrently from multiple workers.
func (p *Pool) triggerShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdownCh)
		p.listener.Close()
	})
}
