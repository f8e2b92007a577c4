package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type stubPinger struct {
	mu  sync.Mutex
	err error
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubPinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func servingStatus(t *testing.T, hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

// statusOf is servingStatus for polling: an unregistered service reads as SERVICE_UNKNOWN.
func statusOf(hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.GetStatus()
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{"no database", nil, healthpb.HealthCheckResponse_SERVING},
		{"database up", &stubPinger{}, healthpb.HealthCheckResponse_SERVING},
		{"database down", &stubPinger{err: errors.New("connection refused")}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := health.NewServer()
			c := NewChecker(hs, tt.pinger, time.Minute, nil)
			if got := c.Check(context.Background()); got != tt.want {
				t.Errorf("Check = %v, want %v", got, tt.want)
			}
			for _, svc := range []string{"", ServiceName} {
				if got := servingStatus(t, hs, svc); got != tt.want {
					t.Errorf("status(%q) = %v, want %v", svc, got, tt.want)
				}
			}
		})
	}
}

func TestChecker_RunTracksPingerAndShutsDown(t *testing.T) {
	hs := health.NewServer()
	p := &stubPinger{}
	c := NewChecker(hs, p, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return statusOf(hs, ServiceName) == healthpb.HealthCheckResponse_SERVING })
	p.set(errors.New("down"))
	waitFor(t, func() bool { return statusOf(hs, ServiceName) == healthpb.HealthCheckResponse_NOT_SERVING })
	p.set(nil)
	waitFor(t, func() bool { return statusOf(hs, ServiceName) == healthpb.HealthCheckResponse_SERVING })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if got := servingStatus(t, hs, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown = %v, want NOT_SERVING", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
