package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTTPService serves a single handler at path, for example the Prometheus
// metrics endpoint. It implements Service.
type HTTPService struct {
	logger *zap.Logger
	srv    *http.Server

	mu  sync.Mutex
	lis net.Listener
}

// NewHTTPService returns an HTTPService for addr that routes path to h.
//
// Precondition: path must start with "/"; h and logger must be non-nil.
func NewHTTPService(addr, path string, h http.Handler, logger *zap.Logger) *HTTPService {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	return &HTTPService{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Addr returns the bound address once Start is listening, or the configured
// address before that.
func (s *HTTPService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return s.srv.Addr
}

// Start listens and serves until Stop. A clean shutdown returns nil.
func (s *HTTPService) Start() error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	s.logger.Info("HTTP server listening",
		zap.String("addr", lis.Addr().String()),
	)
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to five seconds for in-flight requests.
func (s *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown", zap.Error(err))
	}
}
