package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/events"
)

const (
	// sseRingBufferSize is the number of recent events kept in memory for
	// Last-Event-ID reconnection support.
	sseRingBufferSize = 1000

	// sseKeepaliveInterval is how often keepalive comments are sent to
	// prevent connection timeouts.
	sseKeepaliveInterval = 15 * time.Second
)

// sseEvent is a single event stored in the ring buffer and sent to SSE clients.
type sseEvent struct {
	ID    uint64 // monotonically increasing sequence number
	Topic string
	Data  []byte // JSON-encoded payload
}

// EventHub fans record events out to connected SSE clients. It implements
// events.Publisher so it can sit next to the NATS publisher, and keeps an
// in-memory ring buffer for Last-Event-ID reconnection.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*sseClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [sseRingBufferSize]sseEvent
	ringPos int // next write position (wraps around)
	ringLen int // number of valid entries (up to sseRingBufferSize)

	done      chan struct{}
	closeOnce sync.Once

	logger *slog.Logger
}

var _ events.Publisher = (*EventHub)(nil)

// sseClient represents a single connected consumer. Stream clients read
// from ch; in-process subscribers have a queue instead.
type sseClient struct {
	topics []string       // topic patterns to match (empty = all)
	ch     chan *sseEvent // buffered channel for event delivery
	queue  *eventQueue
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*sseClient]struct{}),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
}

// Publish encodes event and broadcasts it under topic.
func (h *EventHub) Publish(_ context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event for SSE: %w", err)
	}
	h.broadcast(topic, payload)
	return nil
}

// Close ends every open stream. Publishing after Close only fills the
// replay buffer.
func (h *EventHub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

var _ events.Subscriber = (*EventHub)(nil)

// Subscribe delivers the payload of every event matching topic until cancel
// is called or the hub is closed. It lets in-process consumers share the
// hub with SSE clients. Events queue without bound while the consumer is
// busy, so none are dropped.
func (h *EventHub) Subscribe(topic string) (<-chan []byte, func(), error) {
	q := &eventQueue{ready: make(chan struct{}, 1)}
	c := &sseClient{topics: []string{topic}, queue: q}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	out := make(chan []byte)
	stop := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case <-h.done:
				return
			case <-q.ready:
			}
			for _, data := range q.drain() {
				select {
				case out <- data:
				case <-stop:
					return
				case <-h.done:
					return
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.unsubscribe(c)
			close(stop)
		})
	}
	return out, cancel, nil
}

// eventQueue is an unbounded FIFO of payloads. ready holds a token while
// items are pending.
type eventQueue struct {
	mu    sync.Mutex
	items [][]byte
	ready chan struct{}
}

func (q *eventQueue) push(data []byte) {
	q.mu.Lock()
	q.items = append(q.items, data)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// broadcast sends an event to all connected clients whose topic filters match.
func (h *EventHub) broadcast(topic string, payload []byte) {
	evt := &sseEvent{
		ID:    h.nextID.Add(1),
		Topic: topic,
		Data:  payload,
	}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % sseRingBufferSize
	if h.ringLen < sseRingBufferSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matchesTopic(topic) {
			continue
		}
		if c.queue != nil {
			c.queue.push(payload)
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// The stream client can resume with Last-Event-ID.
			h.logger.Warn("sse client too slow, event dropped", "topic", topic, "event_id", evt.ID)
		}
	}
}

// subscribe registers a new SSE client and returns it. Call unsubscribe when done.
func (h *EventHub) subscribe(topics []string) *sseClient {
	c := &sseClient{
		topics: topics,
		ch:     make(chan *sseEvent, 64),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// unsubscribe removes a client from the hub.
func (h *EventHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// eventsSince returns buffered events with ID > lastID, in order.
func (h *EventHub) eventsSince(lastID uint64) []*sseEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	if h.ringLen == 0 {
		return nil
	}

	var result []*sseEvent
	start := h.ringPos - h.ringLen
	if start < 0 {
		start += sseRingBufferSize
	}
	for i := range h.ringLen {
		evt := h.ring[(start+i)%sseRingBufferSize]
		if evt.ID > lastID {
			result = append(result, &evt)
		}
	}
	return result
}

// matchesTopic checks whether the client's topic filters match the given topic.
// An empty filter list matches all topics.
func (c *sseClient) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if events.MatchTopic(pattern, topic) {
			return true
		}
	}
	return false
}

// streamTopics builds the topic filter for a stream request from the
// comma-separated "topics" and "collections" query parameters.
func streamTopics(r *http.Request) []string {
	var topics []string
	q := r.URL.Query()
	for _, t := range strings.Split(q.Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	for _, c := range strings.Split(q.Get("collections"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			topics = append(topics, events.Topic(c, "*"))
		}
	}
	return topics
}

// handleEventStream handles GET /events/stream (SSE endpoint).
func (s *ShopServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client := s.hub.subscribe(streamTopics(r))
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if lastID, err := strconv.ParseUint(lastIDStr, 10, 64); err == nil {
			for _, evt := range s.hub.eventsSince(lastID) {
				if client.matchesTopic(evt.Topic) {
					writeSSEEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.hub.done:
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event to the writer.
func writeSSEEvent(w http.ResponseWriter, evt *sseEvent) {
	fmt.Fprintf(w, "id:%d\n", evt.ID)
	fmt.Fprintf(w, "event:%s\n", evt.Topic)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}
