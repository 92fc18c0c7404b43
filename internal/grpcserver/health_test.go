package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/flowenci/interview-coach/internal/observability"
)

func startServer(t *testing.T, checks []observability.DependencyCheck, interval time.Duration) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	hs := New(checks, interval, zerolog.Nop())
	go hs.Serve(lis)
	t.Cleanup(hs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: observability.ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return resp.Status
}

func TestHealthServer_Serving(t *testing.T) {
	client := startServer(t, []observability.DependencyCheck{
		{Name: "database", Check: func(context.Context) error { return nil }},
	}, time.Hour)

	if got := checkStatus(t, client); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", got)
	}
}

func TestHealthServer_TracksDependency(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	client := startServer(t, []observability.DependencyCheck{
		{Name: "database", Check: func(context.Context) error {
			if down.Load() {
				return errors.New("connection refused")
			}
			return nil
		}},
	}, 20*time.Millisecond)

	if got := checkStatus(t, client); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING, got %v", got)
	}

	down.Store(false)
	deadline := time.Now().Add(2 * time.Second)
	for checkStatus(t, client) != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("Expected SERVING after dependency recovered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
