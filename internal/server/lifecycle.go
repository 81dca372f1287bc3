// Package server runs the roll server's long-lived services: the telnet
// acceptor, the gRPC health endpoint and the HTTP metrics endpoint, started
// together and shut down together on a signal or the first failure.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultDrainTimeout bounds how long Run waits for Start calls to return
// after every service has been stopped.
const DefaultDrainTimeout = 10 * time.Second

// Service is a component with a blocking Start and an idempotent Stop that
// makes Start return.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts registered services concurrently and stops them in
// reverse registration order.
type Lifecycle struct {
	logger *zap.Logger
	drain  time.Duration

	mu      sync.Mutex
	entries []entry
}

// NewLifecycle returns an empty Lifecycle that waits DefaultDrainTimeout for
// services to wind down.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger, drain: DefaultDrainTimeout}
}

// SetDrainTimeout changes how long Run waits for Start calls to return after
// shutdown. d <= 0 restores DefaultDrainTimeout.
func (l *Lifecycle) SetDrainTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultDrainTimeout
	}
	l.mu.Lock()
	l.drain = d
	l.mu.Unlock()
}

// Add registers svc under name.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every service and blocks until SIGINT or SIGTERM arrives, ctx
// is cancelled, or a service's Start fails. It then stops all services in
// reverse order and waits for their Start calls to return.
//
// Postcondition: Every service has been stopped. Returns the first Start
// failure, an error if services outlived the drain timeout, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()

	l.mu.Lock()
	entries := append([]entry(nil), l.entries...)
	drain := l.drain
	l.mu.Unlock()

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	g, failed := errgroup.WithContext(ctx)
	for _, e := range entries {
		g.Go(func() error {
			l.logger.Info("starting service", zap.String("service", e.name))
			if err := e.svc.Start(); err != nil {
				l.logger.Error("service failed", zap.String("service", e.name), zap.Error(err))
				return fmt.Errorf("service %s: %w", e.name, err)
			}
			return nil
		})
	}

	<-failed.Done()
	if ctx.Err() != nil {
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	} else {
		l.logger.Warn("shutting down after service failure")
	}

	l.stopAll(entries)

	finished := make(chan error, 1)
	go func() { finished <- g.Wait() }()

	select {
	case err := <-finished:
		l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
		return err
	case <-time.After(drain):
		l.logger.Error("services did not stop in time", zap.Duration("drain_timeout", drain))
		return fmt.Errorf("services still running %s after shutdown", drain)
	}
}

func (l *Lifecycle) stopAll(entries []entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		began := time.Now()
		e.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(began)),
		)
	}
}
