// Package client provides a transport-agnostic interface for the shop service
// and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"net/url"

	"github.com/lukelai18/ECommerce-API/internal/resource"
)

// Object is a decoded JSON object as returned by the API.
type Object = map[string]any

// ShopClient is the interface the CLI uses to talk to the shop server. Record
// payloads are passed through as JSON objects so one set of commands serves
// every resource.
type ShopClient interface {
	// Resource CRUD
	Create(ctx context.Context, res string, body Object) (Object, error)
	Get(ctx context.Context, res string, id int64) (Object, error)
	List(ctx context.Context, res string, filter url.Values) ([]Object, error)
	Update(ctx context.Context, res string, id int64, body Object) (Object, error)
	Delete(ctx context.Context, res string, id int64) error

	// Derived views
	AvailableProducts(ctx context.Context) ([]Object, error)
	LowStockInventories(ctx context.Context) ([]Object, error)

	// Database administration
	DatabaseInfo(ctx context.Context) (*resource.DatabaseInfo, error)
	ResetDatabase(ctx context.Context) error
	ClearCollection(ctx context.Context, name string) error

	// Events
	StreamEvents(ctx context.Context, req *StreamRequest, fn func(*Event) error) error

	// Health
	Health(ctx context.Context) (*HealthStatus, error)

	// Lifecycle
	Close() error
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// StreamRequest selects which events StreamEvents delivers.
type StreamRequest struct {
	Topics      []string // topic patterns, e.g. "shop.orders.*"
	Collections []string // shorthand for shop.<collection>.*
	LastEventID string   // resume after this event
}

// Event is a single server-sent event.
type Event struct {
	ID    string
	Topic string
	Data  []byte
}
