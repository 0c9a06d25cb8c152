package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

var errNotListening = errors.New("server is not listening")

// httpListener binds its http.Server before serving, so Shutdown closes the
// socket even when Serve has not been reached yet. Once shut down it never
// listens again.
type httpListener struct {
	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
	closed bool
}

func (l *httpListener) listen(addr string, srv *http.Server) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return http.ErrServerClosed
	}
	if l.ln != nil {
		return fmt.Errorf("already listening on %s", l.ln.Addr())
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	l.server, l.ln = srv, ln
	return nil
}

func (l *httpListener) serve() error {
	l.mu.Lock()
	srv, ln, closed := l.server, l.ln, l.closed
	l.mu.Unlock()
	switch {
	case srv != nil:
		return srv.Serve(ln)
	case closed:
		return http.ErrServerClosed
	default:
		return errNotListening
	}
}

func (l *httpListener) shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	srv, ln := l.server, l.ln
	l.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	// Shutdown only closes listeners Serve is tracking.
	if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = errors.Join(err, cerr)
	}
	return err
}

// Addr is the bound address, or nil before Listen.
func (l *httpListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
