package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Reserved field names managed by the store. Callers cannot set them.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Fields is the open-ended body of a record.
type Fields map[string]any

// Record is one row of a collection.
type Record struct {
	ID        int64
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// CollectionInfo summarises a collection.
type CollectionInfo struct {
	Name   string   `json:"name"`
	Exists bool     `json:"exists"`
	Count  int      `json:"count"`
	Fields []string `json:"fields"`
}

// Store defines the persistence interface for record collections.
type Store interface {
	CreateCollection(ctx context.Context, name string) error
	Collections(ctx context.Context) ([]string, error)
	Info(ctx context.Context, collection string) (*CollectionInfo, error)

	// Insert assigns the next id of the collection and returns it. Ids are
	// never reused, even after deletion.
	Insert(ctx context.Context, collection string, fields Fields) (int64, error)
	// Get returns nil, nil when the record does not exist.
	Get(ctx context.Context, collection string, id int64) (*Record, error)
	List(ctx context.Context, collection string) ([]*Record, error)
	// Select returns the records whose fields equal every predicate value.
	Select(ctx context.Context, collection string, where Fields) ([]*Record, error)
	// Update merges fields into the record and reports whether it existed.
	Update(ctx context.Context, collection string, id int64, fields Fields) (bool, error)
	Delete(ctx context.Context, collection string, id int64) (bool, error)

	Clear(ctx context.Context, collection string) error
	Drop(ctx context.Context, collection string) error
	Reset(ctx context.Context) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// MarshalJSON flattens the record so id and timestamps sit beside the fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flatten())
}

// Flatten returns the record as a single map.
func (r *Record) Flatten() map[string]any {
	m := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[FieldID] = r.ID
	m[FieldCreatedAt] = r.CreatedAt
	if r.UpdatedAt != nil {
		m[FieldUpdatedAt] = *r.UpdatedAt
	}
	return m
}

// Decode fills v, typically a model struct, from the flattened record.
func (r *Record) Decode(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", r.ID, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record %d: %w", r.ID, err)
	}
	return nil
}

// Clone returns a copy of the record whose field map can be modified freely.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = make(Fields, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

// FieldsOf converts v to Fields through its JSON form, dropping reserved keys.
func FieldsOf(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fields must be a JSON object: %w", err)
	}
	return f.WithoutReserved(), nil
}

// Normalize round-trips f through JSON so that values compare the same way
// regardless of the Go type the caller used (all numbers become float64).
func Normalize(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	return FieldsOf(map[string]any(f))
}

// WithoutReserved returns a copy of f without id and timestamp keys.
func (f Fields) WithoutReserved() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidatePredicate rejects predicate values that are not strings, numbers,
// booleans or null.
func ValidatePredicate(where Fields) error {
	for k, v := range where {
		switch v.(type) {
		case nil, string, bool, float64, float32,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, json.Number:
		default:
			return fmt.Errorf("select: field %q: unsupported predicate value of type %T", k, v)
		}
	}
	return nil
}

// Matches reports whether every predicate field is present in f with an equal
// value. Both sides must already be normalized.
func (f Fields) Matches(where Fields) bool {
	for k, want := range where {
		got, ok := f[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
