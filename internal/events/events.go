package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TopicPrefix is the root of every subject published by the service.
const TopicPrefix = "shop"

// TopicAll matches every record event (NATS wildcard syntax).
const TopicAll = TopicPrefix + ".>"

// Record actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Topic returns the subject for an action on a collection, e.g.
// "shop.orders.created".
func Topic(collection, action string) string {
	return TopicPrefix + "." + collection + "." + action
}

// MatchTopic reports whether a dot-separated topic matches pattern. "*"
// matches one segment and a trailing ">" matches one or more.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}

	return len(patParts) == len(topParts)
}

// RecordEvent is the envelope published for every record mutation.
type RecordEvent struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Collection string         `json:"collection"`
	Action     string         `json:"action"`
	RecordID   int64          `json:"record_id"`
	Record     any            `json:"record,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"` // field name -> new value
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewRecordEvent builds an event with a fresh id and the current time.
func NewRecordEvent(collection, action string, recordID int64, record any, changes map[string]any) *RecordEvent {
	return &RecordEvent{
		ID:         uuid.NewString(),
		Topic:      Topic(collection, action),
		Collection: collection,
		Action:     action,
		RecordID:   recordID,
		Record:     record,
		Changes:    changes,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber delivers raw event payloads for a topic pattern. The returned
// cancel func unsubscribes and eventually closes the channel; it is safe to
// call more than once.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// Multi fans each event out to every publisher. Nil entries are skipped.
func Multi(pubs ...Publisher) Publisher {
	out := make(multiPublisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type multiPublisher []Publisher

func (m multiPublisher) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
