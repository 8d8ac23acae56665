package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/events"
)

// Hook runs Command for every record event whose topic matches Topic.
type Hook struct {
	Topic   string
	Command string
	Timeout time.Duration
}

// Handler consumes record events from the event bus.
type Handler struct {
	hooks  []Hook
	logger *slog.Logger
	exec   func(ctx context.Context, command string, timeout time.Duration, stdin []byte, env map[string]string) Result
}

// NewHandler creates a handler for the given hooks.
func NewHandler(hooks []Hook, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hooks: hooks, logger: logger, exec: Execute}
}

// HandleEvent decodes one event payload, checks inventory levels and runs
// every matching hook in order. It returns the hook results.
func (h *Handler) HandleEvent(ctx context.Context, raw []byte) []Result {
	var ev events.RecordEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Warn("hooks: bad event payload", "err", err)
		return nil
	}

	h.checkLowStock(&ev)

	env := map[string]string{
		"SHOP_EVENT_ID":         ev.ID,
		"SHOP_EVENT_TOPIC":      ev.Topic,
		"SHOP_EVENT_COLLECTION": ev.Collection,
		"SHOP_EVENT_ACTION":     ev.Action,
		"SHOP_EVENT_RECORD_ID":  strconv.FormatInt(ev.RecordID, 10),
	}

	var results []Result
	for _, hook := range h.hooks {
		if !events.MatchTopic(hook.Topic, ev.Topic) {
			continue
		}
		res := h.exec(ctx, hook.Command, hook.Timeout, raw, env)
		if res.Err != nil {
			h.logger.Warn("hooks: command failed",
				"topic", ev.Topic, "command", hook.Command, "err", res.Err, "output", res.Output)
		} else {
			h.logger.Debug("hooks: command ran", "topic", ev.Topic, "command", hook.Command)
		}
		results = append(results, res)
	}
	return results
}

// checkLowStock warns when a created or updated inventory is at or below
// its minimum stock.
func (h *Handler) checkLowStock(ev *events.RecordEvent) bool {
	if ev.Collection != "inventories" || ev.Action == events.ActionDeleted {
		return false
	}
	rec, ok := ev.Record.(map[string]any)
	if !ok {
		return false
	}
	qty, ok1 := rec["quantity"].(float64)
	minStock, ok2 := rec["min_stock"].(float64)
	if !ok1 || !ok2 || qty > minStock {
		return false
	}
	h.logger.Warn("low stock",
		"inventory_id", ev.RecordID,
		"product_id", rec["product_id"],
		"location", rec["location"],
		"quantity", qty,
		"min_stock", minStock,
	)
	return true
}

// StartSubscriber handles every record event from sub. It blocks until ctx
// is cancelled or the subscription closes.
func (h *Handler) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("hooks: subscribe: %w", err)
	}
	defer cancel()

	h.logger.Info("hooks: subscriber started", "hooks", len(h.hooks))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hooks: subscriber stopping")
			return nil
		case raw, ok := <-ch:
			if !ok {
				h.logger.Info("hooks: subscription channel closed")
				return nil
			}
			h.HandleEvent(ctx, raw)
		}
	}
}
