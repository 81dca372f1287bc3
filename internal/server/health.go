package server

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RollServiceName is the health-check service name reported for the roll server.
const RollServiceName = "diceroll.RollServer"

// HealthServer serves the standard gRPC health protocol so orchestrators can
// probe the roll server. It implements Service.
type HealthServer struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server

	mu  sync.Mutex
	lis net.Listener
}

// NewHealthServer returns a HealthServer for addr reporting NOT_SERVING until
// SetServing is called.
//
// Precondition: logger must be non-nil.
func NewHealthServer(addr string, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(RollServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{addr: addr, logger: logger, grpc: gs, health: hs}
}

// SetServing flips the overall and roll service status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(RollServiceName, status)
}

// Addr returns the bound address once Start is listening, or the configured
// address before that.
func (h *HealthServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lis != nil {
		return h.lis.Addr().String()
	}
	return h.addr
}

// Start listens on the configured address and serves until Stop.
func (h *HealthServer) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.lis = lis
	h.mu.Unlock()

	h.logger.Info("gRPC health server listening",
		zap.String("addr", lis.Addr().String()),
	)
	return h.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains the gRPC server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
