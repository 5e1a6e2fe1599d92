package supervisor

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophbank/internal/logging"
)

func echoHandler(ctx context.Context, conn net.Conn) error {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil
		}
		if line == "panic\n" {
			panic("boom")
		}
		if _, err := conn.Write([]byte(line)); err != nil {
			return err
		}
	}
}

func start(t *testing.T, h Handler) (*Server, context.CancelFunc, chan error) {
	t.Helper()
	s := New("127.0.0.1:0", h, logging.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server not ready")
	}
	return s, cancel, done
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func roundTrip(t *testing.T, c net.Conn, msg string) string {
	t.Helper()
	_, err := c.Write([]byte(msg + "\n"))
	require.NoError(t, err)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(c).ReadString('\n')
	require.NoError(t, err)
	return line[:len(line)-1]
}

func TestServer_ServesConcurrentConnections(t *testing.T) {
	s, cancel, done := start(t, HandlerFunc(echoHandler))
	defer cancel()

	a := dial(t, s)
	b := dial(t, s)
	assert.Equal(t, "one", roundTrip(t, a, "one"))
	assert.Equal(t, "two", roundTrip(t, b, "two"))

	assert.Eventually(t, func() bool { return s.ActiveConnections() == 2 }, 2*time.Second, 10*time.Millisecond)

	a.Close()
	assert.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, s.ActiveConnections())
}

func TestServer_PanicIsolatedToSession(t *testing.T) {
	s, cancel, _ := start(t, HandlerFunc(echoHandler))
	defer cancel()

	bad := dial(t, s)
	_, err := bad.Write([]byte("panic\n"))
	require.NoError(t, err)

	require.NoError(t, bad.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = bad.Read(make([]byte, 1))
	assert.Error(t, err, "panicking session must be closed")

	good := dial(t, s)
	assert.Equal(t, "still here", roundTrip(t, good, "still here"))
}

func TestServer_HandlerErrorClosesConn(t *testing.T) {
	var calls atomic.Int32
	s, cancel, _ := start(t, HandlerFunc(func(ctx context.Context, conn net.Conn) error {
		calls.Add(1)
		return errors.New("bad session")
	}))
	defer cancel()

	c := dial(t, s)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServer_ListenError(t *testing.T) {
	s := New("256.0.0.1:0", HandlerFunc(echoHandler), logging.NopLogger{})
	err := s.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, s.Addr())
}

func TestNextDelay(t *testing.T) {
	d := nextDelay(0)
	assert.Equal(t, 5*time.Millisecond, d)
	for i := 0; i < 20; i++ {
		d = nextDelay(d)
	}
	assert.Equal(t, time.Second, d)
}
