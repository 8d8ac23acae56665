package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/lukelai18/ECommerce-API/internal/backup"
	"github.com/lukelai18/ECommerce-API/internal/config"
	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/hooks"
	"github.com/lukelai18/ECommerce-API/internal/resource"
	"github.com/lukelai18/ECommerce-API/internal/server"
	"github.com/lukelai18/ECommerce-API/internal/store"
	"github.com/lukelai18/ECommerce-API/internal/store/memory"
	"github.com/lukelai18/ECommerce-API/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the shop HTTP server",
	Long:    "Start the shop server. Settings come from SHOP_* environment variables and the optional TOML file named by SHOP_CONFIG_FILE.",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't build an API client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := cfg.NewLogger(os.Stderr)
		slog.SetDefault(logger)

		st, err := openStore(cfg)
		if err != nil {
			return err
		}

		var natsPub events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			natsPub = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("NATS events disabled (SHOP_NATS_URL not set)")
		}

		hub := server.NewEventHub()
		publisher := events.Multi(natsPub, hub)
		svc := resource.New(st, publisher, logger,
			resource.WithDatabaseName(cfg.DatabaseName),
			resource.WithDataFile(cfg.DataFile),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := svc.Init(ctx); err != nil {
			publisher.Close()
			st.Close()
			return fmt.Errorf("initializing collections: %w", err)
		}

		shopServer := server.NewShopServer(svc, hub, logger)
		go shopServer.WatchHealth(ctx, cfg.HealthInterval)

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           shopServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 2)
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server: %w", err)
			}
		}()

		var grpcServer *grpc.Server
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				httpServer.Close()
				publisher.Close()
				st.Close()
				return err
			}
			grpcServer = shopServer.NewGRPCServer(cfg.AuthToken)
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					errCh <- fmt.Errorf("gRPC server: %w", err)
				}
			}()
		}

		// Hooks and low-stock alerts follow NATS when configured, the
		// in-process hub otherwise.
		var eventSource events.Subscriber = hub
		var natsSub *events.NATSSubscriber
		if cfg.NATSURL != "" {
			natsSub, err = events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create hooks subscriber, using in-process events", "err", err)
				natsSub = nil
			} else {
				eventSource = natsSub
			}
		}
		hooksDone := make(chan struct{})
		go func() {
			defer close(hooksDone)
			if err := hooks.NewHandler(hookList(cfg.Hooks), logger).StartSubscriber(ctx, eventSource); err != nil {
				logger.Error("hooks subscriber error", "err", err)
			}
			if natsSub != nil {
				natsSub.Close()
			}
		}()

		var scheduler *backup.Scheduler
		if cfg.Backup.Enabled() {
			dests := backupDestinations(ctx, cfg.Backup, logger)
			if len(dests) > 0 {
				scheduler, err = backup.NewScheduler(st, dests, cfg.Backup.Schedule, logger)
				if err != nil {
					logger.Error("backup scheduler disabled", "err", err)
				} else {
					scheduler.Start()
					logger.Info("backup scheduler started", "schedule", cfg.Backup.Schedule, "destinations", len(dests))
				}
			}
		}

		if cfg.AuthToken == "" {
			logger.Warn("authentication disabled (SHOP_AUTH_TOKEN not set)")
		}
		logger.Info("shop server started",
			"store", cfg.Store,
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
		)

		var runErr error
		select {
		case <-ctx.Done():
			logger.Info("received signal, shutting down")
		case runErr = <-errCh:
			logger.Error("server failed, shutting down", "err", runErr)
		}
		stop()

		// Graceful shutdown.
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("backup scheduler stopped")
		}

		// Closing the hub ends open event streams so Shutdown does not wait on them.
		hub.Close()
		<-hooksDone
		logger.Info("hooks subscriber stopped")

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return runErr
	},
}

func hookList(cfg []config.Hook) []hooks.Hook {
	out := make([]hooks.Hook, len(cfg))
	for i, h := range cfg {
		out[i] = hooks.Hook{Topic: h.Topic, Command: h.Command, Timeout: h.Timeout}
	}
	return out
}

// openStore opens the record store selected by cfg.Store.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return postgres.New(cfg.DatabaseURL)
	case config.StoreMemory:
		if cfg.DataFile == "" {
			return memory.New(), nil
		}
		return memory.Open(cfg.DataFile)
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// backupDestinations builds every configured destination. One that cannot be
// created is logged and skipped.
func backupDestinations(ctx context.Context, b config.Backup, logger *slog.Logger) []backup.Destination {
	var dests []backup.Destination
	if b.S3Bucket != "" {
		s3Dest, err := backup.NewS3Destination(ctx, b.S3Bucket, b.S3Key, b.S3Region, b.S3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("backup S3 destination enabled", "bucket", b.S3Bucket, "key", b.S3Key)
		}
	}
	if b.GitRepo != "" {
		dests = append(dests, backup.NewGitDestination(b.GitRepo, b.GitFile, b.GitBranch))
		logger.Info("backup git destination enabled", "repo", b.GitRepo, "file", b.GitFile)
	}
	if b.Dir != "" {
		dests = append(dests, backup.NewDirDestination(b.Dir, b.Keep))
		logger.Info("backup directory destination enabled", "dir", b.Dir, "keep", b.Keep)
	}
	return dests
}
