// Package server exposes the shop over HTTP (JSON + Server-Sent Events) and
// gRPC (health checking only).
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/resource"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the
// overall ("") status.
const ServiceName = "shop.v1.Shop"

// ShopServer binds the resource service to the transports.
type ShopServer struct {
	svc    *resource.Service
	hub    *EventHub
	logger *slog.Logger
	health *health.Server
	now    func() time.Time
}

// NewShopServer returns a ShopServer. hub may be nil, in which case the
// event stream endpoint only sends keepalives.
func NewShopServer(svc *resource.Service, hub *EventHub, logger *slog.Logger) *ShopServer {
	if hub == nil {
		hub = NewEventHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ShopServer{
		svc:    svc,
		hub:    hub,
		logger: logger,
		health: health.NewServer(),
		now:    time.Now,
	}
}

// WatchHealth pings the store every interval and mirrors the result into the
// gRPC health service until ctx is cancelled.
func (s *ShopServer) WatchHealth(ctx context.Context, interval time.Duration) {
	s.checkHealth(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *ShopServer) checkHealth(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.svc.Ping(pingCtx); err != nil {
		s.logger.Warn("store ping failed", "err", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
