// Package grpcserver serves the standard gRPC health protocol for orchestrators
// that probe over gRPC instead of HTTP.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/flowenci/interview-coach/internal/observability"
)

const probeTimeout = 3 * time.Second

// HealthServer reports SERVING while every dependency check passes
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   []observability.DependencyCheck
	interval time.Duration
	logger   zerolog.Logger
	stop     chan struct{}
}

// New builds the gRPC server. Dependencies are re-probed on every interval.
func New(checks []observability.DependencyCheck, interval time.Duration, logger zerolog.Logger) *HealthServer {
	srv := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    30 * time.Second,
		Timeout: 5 * time.Second,
	}))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		server:   srv,
		health:   hs,
		checks:   checks,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Serve probes once, then blocks serving on lis until Stop
func (h *HealthServer) Serve(lis net.Listener) error {
	h.probe()
	go h.watch()
	if err := h.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

func (h *HealthServer) watch() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.probe()
		case <-h.stop:
			return
		}
	}
}

func (h *HealthServer) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	deps, healthy := observability.CheckDependencies(ctx, h.checks)
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn().Interface("dependencies", deps).Msg("Dependency check failed")
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(observability.ServiceName, status)
}

// Stop marks the service not serving and drains in-flight RPCs
func (h *HealthServer) Stop() {
	close(h.stop)
	h.health.Shutdown()
	h.server.GracefulStop()
}
