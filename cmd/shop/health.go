package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/client"
	"github.com/lukelai18/ECommerce-API/internal/server"
	"github.com/lukelai18/ECommerce-API/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the shop service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if addr, _ := cmd.Flags().GetString("grpc"); addr != "" {
			return grpcHealth(ctx, cmd, addr)
		}

		hs, err := shopClient.Health(ctx)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
			hs = &client.HealthStatus{Status: "unhealthy", Error: apiErr.Message}
		} else if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		out := cmd.OutOrStdout()
		if done, err := printValue(out, hs); done {
			if err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Health: %s\n", ui.RenderStatus(hs.Status))
			if hs.Error != "" {
				fmt.Fprintf(out, "Error:  %s\n", hs.Error)
			}
		}
		if hs.Status != "healthy" {
			return fmt.Errorf("unhealthy: %s", hs.Error)
		}
		return nil
	},
}

func grpcHealth(ctx context.Context, cmd *cobra.Command, addr string) error {
	hc, err := client.NewGRPCHealthClient(addr, authToken)
	if err != nil {
		return err
	}
	defer hc.Close()

	status, err := hc.Check(ctx, server.ServiceName)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if done, err := printValue(out, map[string]string{"service": server.ServiceName, "status": status}); done {
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s: %s\n", server.ServiceName, ui.RenderStatus(status))
	}
	if status != "SERVING" {
		return fmt.Errorf("unhealthy: %s", status)
	}
	return nil
}

func init() {
	healthCmd.Flags().String("grpc", "", "query the gRPC health service at this address instead")
}
