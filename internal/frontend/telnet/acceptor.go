package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/diceroll/internal/config"
)

// SessionHandler runs the command loop for one connected client. ctx is
// cancelled when the acceptor stops.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// SessionHandlerFunc adapts a function to SessionHandler.
type SessionHandlerFunc func(ctx context.Context, conn *Conn) error

// HandleSession calls f(ctx, conn).
func (f SessionHandlerFunc) HandleSession(ctx context.Context, conn *Conn) error {
	return f(ctx, conn)
}

type acceptorState uint8

const (
	idle acceptorState = iota
	serving
	stopped
)

// Acceptor accepts Telnet clients and runs each one through a SessionHandler
// on its own goroutine. It satisfies server.Service.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	// base is the parent of every session context; Stop cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	ln       net.Listener
	state    acceptorState
	sessions sync.WaitGroup
	served   atomic.Int64
}

// NewAcceptor returns an idle Acceptor for cfg. Port 0 binds a free port.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	base, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}
}

// Start calls ListenAndServe.
func (a *Acceptor) Start() error {
	return a.ListenAndServe()
}

// ListenAndServe binds the listener and accepts clients until Stop. It
// returns nil without listening when Stop has already been called.
//
// Postcondition: Returns nil after Stop, or the bind error.
func (a *Acceptor) ListenAndServe() error {
	ln, err := a.listen()
	if err != nil || ln == nil {
		return err
	}
	a.logger.Info("telnet acceptor listening", zap.String("addr", ln.Addr().String()))

	for {
		raw, err := ln.Accept()
		if err != nil {
			if a.base.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			a.logger.Warn("accepting connection", zap.Error(err))
			continue
		}
		if !a.track() {
			_ = raw.Close()
			return nil
		}
		go func() {
			defer a.sessions.Done()
			a.serve(raw)
		}()
	}
}

func (a *Acceptor) listen() (net.Listener, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stopped:
		return nil, nil
	case serving:
		return nil, fmt.Errorf("telnet acceptor already serving on %s", a.ln.Addr())
	}
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.ln = ln
	a.state = serving
	return ln, nil
}

// track registers a new session unless Stop has begun.
func (a *Acceptor) track() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stopped {
		return false
	}
	a.sessions.Add(1)
	a.served.Add(1)
	return true
}

func (a *Acceptor) serve(raw net.Conn) {
	began := time.Now()
	log := a.logger.With(zap.String("remote_addr", raw.RemoteAddr().String()))
	log.Info("client connected")

	conn := NewConn(raw, ConnConfig{
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		MaxLine:      a.cfg.MaxLine,
	})

	// Closing the connection is what unblocks a session parked in ReadLine.
	ctx, cancel := context.WithCancel(a.base)
	defer cancel()
	context.AfterFunc(ctx, func() { _ = conn.Close() })

	if err := conn.Negotiate(); err != nil {
		log.Warn("telnet negotiation failed", zap.Error(err))
		return
	}

	err := a.handler.HandleSession(ctx, conn)
	elapsed := zap.Duration("duration", time.Since(began))
	if err != nil {
		log.Debug("session ended", elapsed, zap.Error(err))
		return
	}
	log.Info("session closed", elapsed)
}

// Stop closes the listener, cancels every session and waits for their
// goroutines. Stop is idempotent and may be called before Start.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if a.state == stopped {
		a.mu.Unlock()
		return
	}
	a.state = stopped
	a.cancel()
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.mu.Unlock()

	a.sessions.Wait()
	a.logger.Info("telnet acceptor stopped", zap.Int64("sessions_served", a.served.Load()))
}

// Addr returns the bound address, or "" before the listener is up.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return ""
	}
	return a.ln.Addr().String()
}

// IsRunning reports whether the acceptor is accepting clients.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == serving
}

// Served returns the number of clients accepted so far.
func (a *Acceptor) Served() int64 {
	return a.served.Load()
}
