package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTopic(t *testing.T) {
	for _, tc := range []struct {
		collection, action, want string
	}{
		{"users", ActionCreated, "shop.users.created"},
		{"orders", ActionUpdated, "shop.orders.updated"},
		{"inventories", ActionDeleted, "shop.inventories.deleted"},
	} {
		if got := Topic(tc.collection, tc.action); got != tc.want {
			t.Errorf("Topic(%q, %q) = %q, want %q", tc.collection, tc.action, got, tc.want)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"shop.users.created", "shop.users.created", true},
		{"shop.users.created", "shop.users.updated", false},
		{"shop.users.*", "shop.users.deleted", true},
		{"shop.users.*", "shop.orders.created", false},
		{"shop.*.created", "shop.orders.created", true},
		{TopicAll, "shop.orders.created", true},
		{TopicAll, "other.topic", false},
		{TopicAll, "shop", false},
		{"*.*.*", "shop.users", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := MatchTopic(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("MatchTopic(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

func TestNewRecordEvent(t *testing.T) {
	ev := NewRecordEvent("products", ActionUpdated, 3, nil, map[string]any{"price": 9.5})
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", ev.ID, err)
	}
	if ev.Topic != "shop.products.updated" {
		t.Errorf("Topic = %q", ev.Topic)
	}
	if ev.RecordID != 3 || ev.Changes["price"] != 9.5 {
		t.Errorf("unexpected event %+v", ev)
	}
	if time.Since(ev.OccurredAt) > time.Minute {
		t.Errorf("OccurredAt = %v, want now", ev.OccurredAt)
	}
	other := NewRecordEvent("products", ActionUpdated, 3, nil, nil)
	if other.ID == ev.ID {
		t.Error("event ids must be unique")
	}
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), Topic("users", ActionCreated), struct{}{}); err != nil {
		t.Fatalf("Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close returned unexpected error: %v", err)
	}
}

// recordingPublisher captures published topics.
type recordingPublisher struct {
	topics []string
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	r.topics = append(r.topics, topic)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	a := &recordingPublisher{}
	b := &recordingPublisher{err: errors.New("down")}
	pub := Multi(a, nil, b)

	err := pub.Publish(context.Background(), "shop.users.created", nil)
	if err == nil {
		t.Error("expected the failing publisher's error")
	}
	if len(a.topics) != 1 || len(b.topics) != 1 {
		t.Errorf("both publishers should receive the event: a=%v b=%v", a.topics, b.topics)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close should reach every publisher")
	}
}
