package main

import (
	"context"
	"net"
	"time"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/obs"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const healthService = "authgate"

type grpcServer struct {
	*grpc.Server
	health *health.Server
}

func buildGRPCServer(cfg *config.Config, logger *zap.Logger) (*grpcServer, net.Listener, error) {
	grpcMetrics := grpcprometheus.NewServerMetrics()

	opts := obs.GRPCServerOpts()
	opts = append(opts,
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	grpcMetrics.InitializeMetrics(s)
	if err := prometheus.Register(grpcMetrics); err != nil {
		logger.Warn("grpc metrics register", zap.Error(err))
	}

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, err
	}
	return &grpcServer{Server: s, health: hs}, ln, nil
}

// watchHealth mirrors the storage ping into the grpc health service until
// ctx is done.
func watchHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		err := check(pctx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			logger.Info("health status", zap.String("status", status.String()), zap.Error(err))
			last = status
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(healthService, status)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func serveGRPC(s *grpcServer, ln net.Listener, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
	return s.Serve(ln)
}

func gracefulStopGRPC(s *grpcServer) { s.GracefulStop() }
