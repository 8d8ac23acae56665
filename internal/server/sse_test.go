package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/events"
)

func TestEventHub_BroadcastAndReceive(t *testing.T) {
	hub := NewEventHub()

	client := hub.subscribe(nil) // all topics
	defer hub.unsubscribe(client)

	hub.broadcast("shop.users.created", []byte(`{"record_id":1}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "shop.users.created" {
			t.Fatalf("expected topic=%q, got %q", "shop.users.created", evt.Topic)
		}
		if string(evt.Data) != `{"record_id":1}` {
			t.Fatalf("unexpected data %q", string(evt.Data))
		}
		if evt.ID != 1 {
			t.Fatalf("expected id=1, got %d", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventHub_TopicFiltering(t *testing.T) {
	hub := NewEventHub()

	client := hub.subscribe([]string{"shop.orders.*", "shop.products.deleted"})
	defer hub.unsubscribe(client)

	hub.broadcast("shop.users.created", []byte(`{}`))
	hub.broadcast("shop.orders.created", []byte(`{}`))
	hub.broadcast("shop.products.updated", []byte(`{}`))
	hub.broadcast("shop.products.deleted", []byte(`{}`))

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case evt := <-client.ch:
			got = append(got, evt.Topic)
		case <-timeout:
			t.Fatalf("expected 2 events, got %v", got)
		}
	}
	if got[0] != "shop.orders.created" || got[1] != "shop.products.deleted" {
		t.Fatalf("unexpected topics %v", got)
	}

	select {
	case evt := <-client.ch:
		t.Fatalf("unexpected event: topic=%q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub()

	client := hub.subscribe(nil)
	hub.unsubscribe(client)

	hub.broadcast("shop.users.created", []byte(`{}`))

	select {
	case <-client.ch:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventHub_Publish(t *testing.T) {
	hub := NewEventHub()
	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	ev := events.NewRecordEvent("products", events.ActionCreated, 3, map[string]any{"name": "Pen"}, nil)
	if err := hub.Publish(context.Background(), ev.Topic, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case evt := <-client.ch:
		var decoded events.RecordEvent
		if err := json.Unmarshal(evt.Data, &decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.ID != ev.ID || decoded.RecordID != 3 || decoded.Topic != "shop.products.created" {
			t.Fatalf("unexpected event %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	if err := hub.Publish(context.Background(), "shop.bad", make(chan int)); err == nil {
		t.Fatal("expected an error for an unencodable event")
	}
}

func TestEventHub_EventsSince(t *testing.T) {
	hub := NewEventHub()
	if evts := hub.eventsSince(0); len(evts) != 0 {
		t.Fatalf("expected 0 events, got %d", len(evts))
	}

	for range 5 {
		hub.broadcast("shop.users.created", []byte(`{}`))
	}

	evts := hub.eventsSince(2)
	if len(evts) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evts))
	}
	if evts[0].ID != 3 || evts[1].ID != 4 || evts[2].ID != 5 {
		t.Fatalf("expected IDs [3,4,5], got [%d,%d,%d]", evts[0].ID, evts[1].ID, evts[2].ID)
	}
}

func TestEventHub_RingBufferWrap(t *testing.T) {
	hub := NewEventHub()

	for range sseRingBufferSize + 100 {
		hub.broadcast("shop.users.created", []byte(`{}`))
	}

	evts := hub.eventsSince(0)
	if len(evts) != sseRingBufferSize {
		t.Fatalf("expected %d events, got %d", sseRingBufferSize, len(evts))
	}
	if evts[0].ID != 101 {
		t.Fatalf("expected oldest event ID=101, got %d", evts[0].ID)
	}
}

func TestEventHub_Subscribe(t *testing.T) {
	hub := NewEventHub()
	ch, cancel, err := hub.Subscribe("shop.orders.*")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	hub.broadcast("shop.users.created", []byte(`{"n":1}`))
	hub.broadcast("shop.orders.created", []byte(`{"n":2}`))

	select {
	case data := <-ch:
		if string(data) != `{"n":2}` {
			t.Fatalf("unexpected payload %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	cancel() // idempotent
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestEventHub_SubscribeKeepsBurst(t *testing.T) {
	hub := NewEventHub()
	ch, cancel, err := hub.Subscribe(events.TopicAll)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	// Nothing reads while the burst is published, as when a hook is slow.
	const n = 300
	for i := range n {
		if err := hub.Publish(context.Background(), events.Topic("inventories", events.ActionUpdated), map[string]int{"n": i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for i := range n {
		select {
		case data := <-ch:
			if want := fmt.Sprintf(`{"n":%d}`, i); string(data) != want {
				t.Fatalf("event %d = %s, want %s", i, data, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d events", i, n)
		}
	}
}

func TestEventHub_SlowStreamClientLogsDrop(t *testing.T) {
	var logs bytes.Buffer
	hub := NewEventHub()
	hub.logger = slog.New(slog.NewTextHandler(&logs, nil))

	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	for range cap(client.ch) + 1 {
		hub.broadcast("shop.orders.created", []byte(`{}`))
	}
	if len(client.ch) != cap(client.ch) {
		t.Fatalf("buffered %d events, want %d", len(client.ch), cap(client.ch))
	}
	if !strings.Contains(logs.String(), "event dropped") || !strings.Contains(logs.String(), "topic=shop.orders.created") {
		t.Fatalf("expected a drop warning, got %q", logs.String())
	}
}

func TestEventHub_SubscribeEndsOnClose(t *testing.T) {
	hub := NewEventHub()
	ch, cancel, err := hub.Subscribe(events.TopicAll)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	_ = hub.Close()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after hub close")
	}
}

// startStream opens an SSE request against h in the background.
func startStream(h http.Handler, path, lastEventID string) (*httptest.ResponseRecorder, context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()
	// Give the handler time to register the subscription.
	time.Sleep(50 * time.Millisecond)
	return rec, cancel, done
}

func TestHandleEventStream_Mutations(t *testing.T) {
	_, _, h := newTestServer(t)

	rec, cancel, done := startStream(h, "/events/stream", "")
	defer cancel()

	expectStatus(t, doRequest(t, h, http.MethodPost, "/users", map[string]any{
		"username": "erin", "email": "erin@example.com",
	}), http.StatusCreated)
	expectStatus(t, doRequest(t, h, http.MethodDelete, "/users/1", nil), http.StatusNoContent)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"event:shop.users.created", "event:shop.users.deleted", `"username":"erin"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body, got:\n%s", want, body)
		}
	}
}

func TestHandleEventStream_CollectionFilter(t *testing.T) {
	_, hub, h := newTestServer(t)

	rec, cancel, done := startStream(h, "/events/stream?collections=orders", "")
	defer cancel()

	hub.broadcast("shop.users.created", []byte(`{"n":1}`))
	hub.broadcast("shop.orders.created", []byte(`{"n":2}`))

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if strings.Contains(body, "shop.users.created") {
		t.Fatalf("expected users event to be filtered out, got:\n%s", body)
	}
	if !strings.Contains(body, "shop.orders.created") {
		t.Fatalf("expected orders event in body, got:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	_, hub, h := newTestServer(t)

	hub.broadcast("shop.users.created", []byte(`{"n":1}`))
	hub.broadcast("shop.users.updated", []byte(`{"n":2}`))
	hub.broadcast("shop.users.deleted", []byte(`{"n":3}`))

	rec, cancel, done := startStream(h, "/events/stream", "1")
	cancel()
	<-done

	body := rec.Body.String()
	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("expected event 1 to be skipped, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) || !strings.Contains(body, `data:{"n":3}`) {
		t.Fatalf("expected events 2 and 3 in body, got:\n%s", body)
	}
}

func TestHandleEventStream_HubClose(t *testing.T) {
	_, hub, h := newTestServer(t)

	_, cancel, done := startStream(h, "/events/stream", "")
	defer cancel()

	if err := hub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end after hub close")
	}
}

func TestSSEEventFormat(t *testing.T) {
	_, hub, h := newTestServer(t)

	rec, cancel, done := startStream(h, "/events/stream", "")
	defer cancel()

	hub.broadcast("shop.products.created", []byte(`{"record_id":7}`))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}

	if id != "1" {
		t.Fatalf("expected id 1, got %q", id)
	}
	if event != "shop.products.created" {
		t.Fatalf("expected event=shop.products.created, got %q", event)
	}
	if data != `{"record_id":7}` {
		t.Fatalf("expected data=%q, got %q", `{"record_id":7}`, data)
	}
}
