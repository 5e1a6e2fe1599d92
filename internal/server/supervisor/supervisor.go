// Package supervisor accepts TCP connections and serves each one in its own
// goroutine. The number of concurrent sessions is not bounded.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophbank/internal/logging"
)

// Handler serves one connection. The supervisor closes conn afterwards.
type Handler interface {
	ServeConn(ctx context.Context, conn net.Conn) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, conn net.Conn) error

func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) error {
	return f(ctx, conn)
}

const maxAcceptDelay = time.Second

type Server struct {
	addr    string
	handler Handler
	logger  logging.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	ready    chan struct{}

	wg sync.WaitGroup
}

func New(addr string, h Handler, logger logging.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: h,
		logger:  logger.With("module", "supervisor"),
		conns:   make(map[net.Conn]struct{}),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveConnections returns the number of sessions being served.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Run listens on the configured address and serves connections until ctx is
// cancelled or accepting fails for good. On the way out it closes the
// listener and every live connection, then waits for their goroutines.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info(ctx, "listening", "addr", ln.Addr().String())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ln.Close()
	}()

	err = s.acceptLoop(ctx, ln)
	s.shutdown(ctx)
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if !isTemporary(err) {
				return fmt.Errorf("accept: %w", err)
			}
			delay = nextDelay(delay)
			s.logger.Warn(ctx, "accept failed, retrying", "error", err, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		s.track(conn)
		s.wg.Add(1)
		go s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "session panicked", "remote", remote, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	s.logger.Info(ctx, "connection accepted", "remote", remote)
	if err := s.handler.ServeConn(ctx, conn); err != nil {
		s.logger.Warn(ctx, "session ended with error", "remote", remote, "error", err)
		return
	}
	s.logger.Info(ctx, "connection closed", "remote", remote)
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) shutdown(ctx context.Context) {
	s.mu.Lock()
	n := len(s.conns)
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info(ctx, "closing live sessions", "count", n)
	}
	s.wg.Wait()
}

func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

func nextDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > maxAcceptDelay {
		d = maxAcceptDelay
	}
	return d
}
