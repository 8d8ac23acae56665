// Package resource implements the typed entity operations of the shop on top
// of a generic record store: validation, uniqueness, references between
// entities and derived fields.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/events"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

// Collection names
const (
	Users       = "users"
	Products    = "products"
	Orders      = "orders"
	Categories  = "categories"
	Reviews     = "reviews"
	Inventories = "inventories"
	Suppliers   = "suppliers"
)

// Collections lists every collection the service manages, in creation order.
var Collections = []string{Users, Products, Orders, Categories, Reviews, Inventories, Suppliers}

// DefaultDatabaseName is reported by DatabaseInfo when none is configured.
const DefaultDatabaseName = "ecommerce_db"

// Service exposes create/read/update/delete operations for every entity.
// All check-then-write sequences run inside a store transaction.
type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	dbName    string
	dataFile  string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for derived timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDatabaseName sets the name reported by DatabaseInfo.
func WithDatabaseName(name string) Option {
	return func(s *Service) { s.dbName = name }
}

// WithDataFile sets the snapshot path reported by DatabaseInfo.
func WithDataFile(path string) Option {
	return func(s *Service) { s.dataFile = path }
}

// New creates a Service. A nil publisher or logger is replaced by a no-op
// publisher and slog.Default().
func New(st store.Store, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     st,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		dbName:    DefaultDatabaseName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates every managed collection. It is idempotent.
func (s *Service) Init(ctx context.Context) error {
	for _, name := range Collections {
		if err := s.store.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks that the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish emits a record event. Failures are logged and never returned: the
// mutation has already been committed.
func (s *Service) publish(ctx context.Context, collection, action string, id int64, record any, changes map[string]any) {
	ev := events.NewRecordEvent(collection, action, id, record, changes)
	if err := s.publisher.Publish(ctx, ev.Topic, ev); err != nil {
		s.logger.Warn("failed to publish event", "topic", ev.Topic, "record_id", id, "err", err)
	}
}

// changesOf returns the fields present in a partial update.
func changesOf(update any) map[string]any {
	fields, err := store.FieldsOf(update)
	if err != nil {
		return map[string]any{}
	}
	return fields
}

// TableInfo summarises one collection for DatabaseInfo.
type TableInfo struct {
	Count  int      `json:"count"`
	Fields []string `json:"fields"`
}

// DatabaseInfo describes the whole store.
type DatabaseInfo struct {
	DatabaseName string               `json:"database_name"`
	DataFile     string               `json:"data_file,omitempty"`
	Tables       map[string]TableInfo `json:"tables"`
	TotalRecords int                  `json:"total_records"`
	Message      string               `json:"message"`
}

// DatabaseInfo reports per-collection record counts and field names.
func (s *Service) DatabaseInfo(ctx context.Context) (*DatabaseInfo, error) {
	names, err := s.store.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	info := &DatabaseInfo{
		DatabaseName: s.dbName,
		DataFile:     s.dataFile,
		Tables:       make(map[string]TableInfo, len(names)),
	}
	for _, name := range names {
		ci, err := s.store.Info(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("collection info %s: %w", name, err)
		}
		info.Tables[name] = TableInfo{Count: ci.Count, Fields: ci.Fields}
		info.TotalRecords += ci.Count
	}
	info.Message = fmt.Sprintf("%d collections, %d records", len(names), info.TotalRecords)
	return info, nil
}

// ResetDatabase removes every record and collection, then recreates the
// managed collections. Id sequences start over.
func (s *Service) ResetDatabase(ctx context.Context) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.Reset(ctx); err != nil {
			return err
		}
		for _, name := range Collections {
			if err := tx.CreateCollection(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	s.logger.Info("database reset")
	return nil
}

// ClearCollection deletes every record of a managed collection. Ids already
// issued are not reused.
func (s *Service) ClearCollection(ctx context.Context, name string) error {
	if !slices.Contains(Collections, name) {
		return &NotFoundError{Resource: "collection", Key: name}
	}
	if err := s.store.Clear(ctx, name); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	s.logger.Info("collection cleared", "collection", name)
	return nil
}
