package listenpool

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialAndSend(t *testing.T, addr string, line string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return reply
}

func echoHandler(processed *int64) Handler {
	return func(ctx context.Context, conn net.Conn) (bool, error) {
		defer conn.Close()
		atomic.AddInt64(processed, 1)

		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return false, err
		}
		if _, err := conn.Write([]byte(line)); err != nil {
			return false, err
		}
		return line == "BYE\n", nil
	}
}

func TestPool_ProcessesConnectionsUntilBye(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var processed int64
	pool := New(listener, 3, 8, echoHandler(&processed), nil)

	done := make(chan struct{})
	go func() {
		pool.Run(context.Background())
		close(done)
	}()

	addr := listener.Addr().String()
	for i := 0; i < 5; i++ {
		reply := dialAndSend(t, addr, "hello")
		require.Equal(t, "hello\n", reply)
	}

	reply := dialAndSend(t, addr, "BYE")
	require.Equal(t, "BYE\n", reply)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Run did not return after BYE")
	}

	require.GreaterOrEqual(t, atomic.LoadInt64(&processed), int64(6))

	_, err = net.Dial("tcp", addr)
	require.Error(t, err, "listener should be closed after shutdown")
}

func TestPool_ExternalShutdownStopsAcceptLoop(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var processed int64
	pool := New(listener, 2, 4, echoHandler(&processed), nil)

	done := make(chan struct{})
	go func() {
		pool.Run(context.Background())
		close(done)
	}()

	pool.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Run did not return after external Shutdown")
	}
}
