// Package health drives the gRPC health status from database reachability.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "nexus.auth"

// Pinger is used for readiness (e.g. *sql.DB). A nil Pinger always reports serving.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker pings the database and mirrors the result into a grpc health server.
type Checker struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewChecker returns a Checker that probes every interval. logger may be nil.
func NewChecker(server *health.Server, pinger Pinger, interval time.Duration, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Checker{server: server, pinger: pinger, interval: interval, timeout: 2 * time.Second, logger: logger}
}

// Check probes once and updates the serving status. It returns the status set.
func (c *Checker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if c.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			c.logger.Warn("health: database ping failed", zap.Error(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	c.server.SetServingStatus("", st)
	c.server.SetServingStatus(ServiceName, st)
	return st
}

// Run probes until ctx is done, then marks everything NOT_SERVING so probes fail during shutdown.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
