package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const probeTimeout = 2 * time.Second

// Check probes one backing dependency, e.g. a MongoDB or Redis ping.
type Check func(ctx context.Context) error

// HealthServer serves the standard gRPC health service. The overall status
// and the named service both follow the registered checks.
type HealthServer struct {
	srv     *grpc.Server
	health  *health.Server
	service string
	checks  map[string]Check
	log     *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHealthServer(service string, checks map[string]Check, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		srv:     srv,
		health:  hs,
		service: service,
		checks:  checks,
		log:     logger.Named("grpc-health"),
		stop:    make(chan struct{}),
	}
}

// Probe runs every check once and publishes the result.
func (s *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			s.log.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
	return status
}

// Watch re-probes on every tick until Stop.
func (s *HealthServer) Watch(interval time.Duration) {
	s.Probe(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Probe(context.Background())
			}
		}
	}()
}

func (s *HealthServer) Serve(lis net.Listener) error {
	s.log.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

func (s *HealthServer) Start(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.srv.GracefulStop()
	})
}
