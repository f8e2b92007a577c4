// Package server assembles the gRPC listener. It serves only the standard health
// protocol and reflection; the API itself is HTTP (see httpapi).
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vritti-ai-platforms/api-nexus/internal/server/interceptors"
)

// healthCheckMethod is not logged; orchestrators call it every few seconds.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewGRPCServer returns a server with hs and reflection registered, OTel stats, and the
// recovery and logging interceptors. logger may be nil.
func NewGRPCServer(hs *health.Server, logger *zap.Logger) *grpc.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryUnary(logger),
			interceptors.LoggingUnary(logger, map[string]bool{healthCheckMethod: true}),
		),
	)
	RegisterServices(s, hs)
	reflection.Register(s)
	return s
}

// RegisterServices registers the health service with the given server.
func RegisterServices(s grpc.ServiceRegistrar, hs *health.Server) {
	healthpb.RegisterHealthServer(s, hs)
}
