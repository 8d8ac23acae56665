package resource

import (
	"context"
	"fmt"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// getAs loads a record into a new T. It returns nil, nil when absent.
func getAs[T any](ctx context.Context, st store.Store, collection string, id int64) (*T, error) {
	r, err := st.Get(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", collection, id, err)
	}
	if r == nil {
		return nil, nil
	}
	var v T
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// mustGet is getAs with a NotFoundError for absent records.
func mustGet[T any](ctx context.Context, st store.Store, collection, resource string, id int64) (*T, error) {
	v, err := getAs[T](ctx, st, collection, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, notFound(resource, id)
	}
	return v, nil
}

func exists(ctx context.Context, st store.Store, collection, resource string, id int64) error {
	r, err := st.Get(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("get %s %d: %w", collection, id, err)
	}
	if r == nil {
		return notFound(resource, id)
	}
	return nil
}

func selectAs[T any](ctx context.Context, st store.Store, collection string, where store.Fields) ([]T, error) {
	records, err := st.Select(ctx, collection, where)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := r.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// insertAs stores v and returns the stored form with id and timestamps set.
func insertAs[T any](ctx context.Context, st store.Store, collection string, v *T) (*T, error) {
	fields, err := store.FieldsOf(v)
	if err != nil {
		return nil, err
	}
	id, err := st.Insert(ctx, collection, fields)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	out, err := getAs[T](ctx, st, collection, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("insert into %s: record %d vanished", collection, id)
	}
	return out, nil
}

// updateAs overwrites the fields of record id with v.
func updateAs[T any](ctx context.Context, st store.Store, collection, resource string, id int64, v *T) (*T, error) {
	fields, err := store.FieldsOf(v)
	if err != nil {
		return nil, err
	}
	ok, err := st.Update(ctx, collection, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", collection, id, err)
	}
	if !ok {
		return nil, notFound(resource, id)
	}
	return mustGet[T](ctx, st, collection, resource, id)
}

func deleteRecord(ctx context.Context, st store.Store, collection, resource string, id int64) error {
	ok, err := st.Delete(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", collection, id, err)
	}
	if !ok {
		return notFound(resource, id)
	}
	return nil
}

// ensureUnique fails with a ConflictError when another record of the
// collection already holds value in field. selfID is excluded so a record
// can keep its own value on update.
func ensureUnique(ctx context.Context, st store.Store, collection, field string, value any, selfID int64) error {
	matches, err := st.Select(ctx, collection, store.Fields{field: value})
	if err != nil {
		return fmt.Errorf("check unique %s.%s: %w", collection, field, err)
	}
	for _, r := range matches {
		if r.ID != selfID {
			return conflictf("%s %v already exists", field, value)
		}
	}
	return nil
}
