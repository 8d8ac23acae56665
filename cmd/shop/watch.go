package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/lukelai18/ECommerce-API/internal/client"
	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream record changes as they happen",
	Long: `Stream record events from the server's /events/stream endpoint, or
directly from NATS when --nats is given.`,
	Example: `  shop watch --collections orders,products
  shop watch --topics 'shop.*.deleted'
  shop watch --nats nats://localhost:4222`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topics")
		collections, _ := cmd.Flags().GetStringSlice("collections")
		since, _ := cmd.Flags().GetString("since")
		natsURL, _ := cmd.Flags().GetString("nats")
		for _, c := range collections {
			if _, err := checkCollection(c); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		if natsURL != "" {
			for _, c := range collections {
				topics = append(topics, events.Topic(c, "*"))
			}
			return watchNATS(ctx, out, natsURL, topics)
		}
		return shopClient.StreamEvents(ctx, &client.StreamRequest{
			Topics:      topics,
			Collections: collections,
			LastEventID: since,
		}, func(e *client.Event) error {
			return printEvent(out, e.Data)
		})
	},
}

// watchNATS subscribes to every pattern and prints events until ctx is done.
func watchNATS(ctx context.Context, out io.Writer, natsURL string, topics []string) error {
	if len(topics) == 0 {
		topics = []string{events.TopicAll}
	}
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
	if err != nil {
		return err
	}
	defer sub.Close()

	merged := make(chan []byte, 64)
	for _, topic := range topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()
		go func() {
			for data := range ch {
				select {
				case merged <- data:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-merged:
			if err := printEvent(out, data); err != nil {
				return err
			}
		}
	}
}

// printEvent prints a record event as one line, or verbatim for json/yaml.
func printEvent(w io.Writer, data []byte) error {
	var ev events.RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		fmt.Fprintln(w, string(data))
		return nil
	}
	if done, err := printValue(w, ev); done {
		return err
	}
	fmt.Fprintf(w, "%s  %-8s %s %d\n",
		ui.RenderMuted(ev.OccurredAt.Local().Format(time.TimeOnly)),
		ui.RenderStatus(ev.Action),
		singular(ev.Collection),
		ev.RecordID,
	)
	return nil
}

func init() {
	watchCmd.Flags().StringSlice("topics", nil, "topic patterns, e.g. shop.orders.*")
	watchCmd.Flags().StringSlice("collections", nil, "only events of these collections")
	watchCmd.Flags().String("since", "", "replay events after this event id")
	watchCmd.Flags().String("nats", "", "subscribe to this NATS server instead of the HTTP stream")
}
