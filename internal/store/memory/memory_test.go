package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestInsertGet(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	id, err := s.Insert(ctx, "products", store.Fields{"name": "Keyboard", "price": 59.99, "stock": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	r, err := s.Get(ctx, "products", id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "Keyboard", r.Fields["name"])
	assert.Equal(t, 59.99, r.Fields["price"])
	assert.Equal(t, float64(3), r.Fields["stock"], "numbers are normalized to float64")
	assert.Equal(t, fixedClock()(), r.CreatedAt)
	assert.Nil(t, r.UpdatedAt)
}

func TestInsert_IgnoresReservedFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, "users", store.Fields{"id": 99, "created_at": "yesterday", "username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	r, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.NotContains(t, r.Fields, "id")
	assert.NotContains(t, r.Fields, "created_at")
}

func TestGet_Missing(t *testing.T) {
	ctx := context.Background()
	s := New()

	r, err := s.Get(ctx, "nope", 1)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = s.Insert(ctx, "users", store.Fields{"username": "alice"})
	require.NoError(t, err)
	r, err = s.Get(ctx, "users", 2)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, "users", store.Fields{"username": "alice"})
	require.NoError(t, err)

	ok, err := s.Delete(ctx, "users", id)
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Nil(t, r)

	ok, err = s.Delete(ctx, "users", id)
	require.NoError(t, err)
	assert.False(t, ok, "second delete should report not found")

	ok, err = s.Delete(ctx, "ghosts", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, _ := s.Insert(ctx, "orders", store.Fields{"n": 1})
	second, _ := s.Insert(ctx, "orders", store.Fields{"n": 2})
	_, err := s.Delete(ctx, "orders", second)
	require.NoError(t, err)
	third, err := s.Insert(ctx, "orders", store.Fields{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(3), third)

	require.NoError(t, s.Clear(ctx, "orders"))
	fourth, err := s.Insert(ctx, "orders", store.Fields{"n": 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), fourth, "clear keeps the sequence")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	id, err := s.Insert(ctx, "products", store.Fields{"name": "Mouse", "price": 10.0})
	require.NoError(t, err)

	ok, err := s.Update(ctx, "products", id, store.Fields{"price": 12.5, "id": 500, "created_at": "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Get(ctx, "products", id)
	require.NoError(t, err)
	assert.Equal(t, id, r.ID, "update never changes the id")
	assert.Equal(t, "Mouse", r.Fields["name"])
	assert.Equal(t, 12.5, r.Fields["price"])
	assert.Equal(t, fixedClock()(), r.CreatedAt)
	require.NotNil(t, r.UpdatedAt)

	ok, err = s.Update(ctx, "products", 42, store.Fields{"price": 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, _ := s.Insert(ctx, "users", store.Fields{"username": "alice"})
	r, _ := s.Get(ctx, "users", id)
	r.Fields["username"] = "mallory"

	again, _ := s.Get(ctx, "users", id)
	assert.Equal(t, "alice", again.Fields["username"])
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, f := range []store.Fields{
		{"name": "Keyboard", "price": 59.99, "is_available": true},
		{"name": "Mouse", "price": 19.99, "is_available": false},
		{"name": "Monitor", "price": 59.99, "is_available": true},
	} {
		_, err := s.Insert(ctx, "products", f)
		require.NoError(t, err)
	}

	got, err := s.Select(ctx, "products", store.Fields{"price": 59.99})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Keyboard", got[0].Fields["name"], "insertion order is preserved")
	assert.Equal(t, "Monitor", got[1].Fields["name"])

	got, err = s.Select(ctx, "products", store.Fields{"price": 1.0})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Select(ctx, "products", store.Fields{"is_available": false, "name": "Mouse"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.Select(ctx, "products", store.Fields{"color": "red"})
	require.NoError(t, err)
	assert.Empty(t, got, "records lacking the field never match")

	got, err = s.Select(ctx, "products", nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.Select(ctx, "missing", store.Fields{"a": 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_IntegerMatchesStoredNumber(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Insert(ctx, "reviews", store.Fields{"product_id": int64(7)})
	require.NoError(t, err)

	got, err := s.Select(ctx, "reviews", store.Fields{"product_id": 7})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSelect_RejectsNonScalar(t *testing.T) {
	s := New()
	_, err := s.Select(context.Background(), "orders", store.Fields{"product_ids": []int{1}})
	assert.Error(t, err)
}

func TestCollectionsAndInfo(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateCollection(ctx, "users"))
	require.NoError(t, s.CreateCollection(ctx, "users"), "create is idempotent")
	_, err := s.Insert(ctx, "products", store.Fields{"name": "Pen", "price": 1.5})
	require.NoError(t, err)

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"products", "users"}, names)

	info, err := s.Info(ctx, "products")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, 1, info.Count)
	assert.Equal(t, []string{"created_at", "id", "name", "price"}, info.Fields)

	info, err = s.Info(ctx, "users")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Zero(t, info.Count)
	assert.Empty(t, info.Fields)

	info, err = s.Info(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, info.Exists)

	assert.Error(t, s.CreateCollection(ctx, sequencesKey))
}

func TestDropAndReset(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, _ = s.Insert(ctx, "users", store.Fields{"username": "alice"})
	_, _ = s.Insert(ctx, "products", store.Fields{"name": "Pen"})

	require.NoError(t, s.Drop(ctx, "users"))
	names, _ := s.Collections(ctx)
	assert.Equal(t, []string{"products"}, names)

	require.NoError(t, s.Reset(ctx))
	names, _ = s.Collections(ctx)
	assert.Empty(t, names)
}

func TestRunInTransaction_Rollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.Insert(ctx, "users", store.Fields{"username": "alice"})

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.Insert(ctx, "users", store.Fields{"username": "bob"}); err != nil {
			return err
		}
		if _, err := tx.Update(ctx, "users", 1, store.Fields{"username": "changed"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, _ := s.List(ctx, "users")
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].Fields["username"])

	id, _ := s.Insert(ctx, "users", store.Fields{"username": "carol"})
	assert.Equal(t, int64(2), id, "rolled back inserts do not consume ids")
}

func TestRunInTransaction_Commit(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.RunInTransaction(ctx, func(inner store.Store) error {
			_, err := inner.Insert(ctx, "users", store.Fields{"username": "alice"})
			return err
		})
	})
	require.NoError(t, err)

	all, _ := s.List(ctx, "users")
	assert.Len(t, all, 1)
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Insert(ctx, "orders", store.Fields{"n": 1})
		}()
	}
	wg.Wait()

	all, _ := s.List(ctx, "orders")
	require.Len(t, all, 50)
	seen := map[int64]bool{}
	for _, r := range all {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app_db.json")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, "users", store.Fields{"username": "alice", "is_active": true})
	require.NoError(t, err)
	second, err := s.Insert(ctx, "users", store.Fields{"username": "bob"})
	require.NoError(t, err)
	_, err = s.Update(ctx, "users", 1, store.Fields{"username": "alicia"})
	require.NoError(t, err)
	_, err = s.Delete(ctx, "users", second)
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(ctx, "orders"))

	reopened, err := Open(path)
	require.NoError(t, err)

	names, _ := reopened.Collections(ctx)
	assert.Equal(t, []string{"orders", "users"}, names)

	r, err := reopened.Get(ctx, "users", 1)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "alicia", r.Fields["username"])
	assert.Equal(t, true, r.Fields["is_active"])
	assert.NotNil(t, r.UpdatedAt)

	id, err := reopened.Insert(ctx, "users", store.Fields{"username": "carol"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id, "deleted ids are not reused after restart")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "temp file left behind")
	}
}

func TestSnapshot_HandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"products":[{"id":4,"name":"Pen","price":1.5,"created_at":"2024-01-02T03:04:05Z"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	r, err := s.Get(ctx, "products", 4)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), r.CreatedAt)

	id, err := s.Insert(ctx, "products", store.Fields{"name": "Ink"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestSnapshot_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestSnapshot_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "db.json")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, "users", store.Fields{"username": "alice"})
	require.NoError(t, err)

	// Removing the directory makes the next snapshot write fail.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "sub")))

	_, err = s.Insert(ctx, "users", store.Fields{"username": "bob"})
	require.Error(t, err)

	all, err := s.List(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed persistence must not leave the insert in memory")
}
