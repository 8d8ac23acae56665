package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/lukelai18/ECommerce-API/internal/store/memory"
)

// dialBufconn serves srv on an in-memory listener and returns a health
// client connected to it.
func dialBufconn(t *testing.T, srv *grpc.Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestGRPCHealth(t *testing.T) {
	for _, tc := range []struct {
		name    string
		healthy bool
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{name: "serving", healthy: true, want: healthpb.HealthCheckResponse_SERVING},
		{name: "not serving", healthy: false, want: healthpb.HealthCheckResponse_NOT_SERVING},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var srv *ShopServer
			if tc.healthy {
				srv, _, _ = newTestServer(t)
			} else {
				srv, _, _ = newTestServerWithStore(t, failingPingStore{Store: memory.New()})
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.checkHealth(ctx)

			client := dialBufconn(t, srv.NewGRPCServer("secret"))
			for _, service := range []string{"", ServiceName} {
				resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
				if err != nil {
					t.Fatalf("Check(%q): %v", service, err)
				}
				if resp.GetStatus() != tc.want {
					t.Fatalf("Check(%q) = %v, want %v", service, resp.GetStatus(), tc.want)
				}
			}
		})
	}
}

func TestWatchHealth_StopsOnCancel(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.WatchHealth(ctx, 10*time.Millisecond)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WatchHealth did not return after cancel")
	}
}
