// Package grpc publishes router reachability through the standard gRPC
// health service.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
)

// RouterService is the health service name tracking the router.
const RouterService = "hotspotkeeper.router"

// Checker checks the router. Report additionally records the outcome for
// operators and is used once at startup.
type Checker interface {
	SelfCheck(ctx context.Context) error
	ReportSelfCheck(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	checker  Checker
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, c Checker, interval time.Duration) *GRPCServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(RouterService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &GRPCServer{
		address:  a,
		checker:  c,
		interval: interval,
		health:   hs,
		logger:   l.With("module", "grpc_server"),
	}
}

// refresh runs one check and updates the router status. It returns the
// check error.
func (s *GRPCServer) refresh(ctx context.Context, check func(context.Context) error) error {
	err := check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(RouterService, status)
	return err
}

func (s *GRPCServer) watch(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.refresh(ctx, s.checker.SelfCheck)
			switch {
			case err != nil && healthy:
				s.logger.Warn(ctx, "router became unreachable", "error", err)
			case err == nil && !healthy:
				s.logger.Info(ctx, "router reachable again")
			}
			healthy = err == nil
		}
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.health)

	// startup self-check goes to the operator channel; later ones only flip status
	_ = s.refresh(ctx, s.checker.ReportSelfCheck)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
