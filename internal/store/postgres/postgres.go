// Package postgres implements the store.Store interface backed by PostgreSQL.
// Records live in a single JSONB table keyed by (collection, id).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newWithDB(db), nil
}

func newWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateCollection(ctx context.Context, name string) error {
	return queryCreateCollection(ctx, s.db, name)
}

func (s *PostgresStore) Collections(ctx context.Context) ([]string, error) {
	return queryCollections(ctx, s.db)
}

func (s *PostgresStore) Info(ctx context.Context, collection string) (*store.CollectionInfo, error) {
	return queryInfo(ctx, s.db, collection)
}

// Insert runs in its own transaction because allocating the id and writing
// the row are separate statements.
func (s *PostgresStore) Insert(ctx context.Context, collection string, fields store.Fields) (int64, error) {
	var id int64
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		id, err = tx.Insert(ctx, collection, fields)
		return err
	})
	return id, err
}

func (s *PostgresStore) Get(ctx context.Context, collection string, id int64) (*store.Record, error) {
	return queryGet(ctx, s.db, collection, id)
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]*store.Record, error) {
	return queryList(ctx, s.db, collection)
}

func (s *PostgresStore) Select(ctx context.Context, collection string, where store.Fields) ([]*store.Record, error) {
	return querySelect(ctx, s.db, collection, where)
}

func (s *PostgresStore) Update(ctx context.Context, collection string, id int64, fields store.Fields) (bool, error) {
	return queryUpdate(ctx, s.db, collection, id, fields, s.now().UTC())
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, id int64) (bool, error) {
	return queryDelete(ctx, s.db, collection, id)
}

func (s *PostgresStore) Clear(ctx context.Context, collection string) error {
	return queryClear(ctx, s.db, collection)
}

func (s *PostgresStore) Drop(ctx context.Context, collection string) error {
	return queryDrop(ctx, s.db, collection)
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	return queryReset(ctx, s.db)
}

// RunInTransaction begins a database transaction, takes the store-wide
// advisory lock, creates a txStore that delegates to it, calls fn, and
// commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := queryLock(ctx, tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire transaction lock: %w", err)
	}

	txS := &txStore{tx: tx, now: s.now}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateCollection(ctx context.Context, name string) error {
	return queryCreateCollection(ctx, s.tx, name)
}

func (s *txStore) Collections(ctx context.Context) ([]string, error) {
	return queryCollections(ctx, s.tx)
}

func (s *txStore) Info(ctx context.Context, collection string) (*store.CollectionInfo, error) {
	return queryInfo(ctx, s.tx, collection)
}

func (s *txStore) Insert(ctx context.Context, collection string, fields store.Fields) (int64, error) {
	return queryInsert(ctx, s.tx, collection, fields, s.now().UTC())
}

func (s *txStore) Get(ctx context.Context, collection string, id int64) (*store.Record, error) {
	return queryGet(ctx, s.tx, collection, id)
}

func (s *txStore) List(ctx context.Context, collection string) ([]*store.Record, error) {
	return queryList(ctx, s.tx, collection)
}

func (s *txStore) Select(ctx context.Context, collection string, where store.Fields) ([]*store.Record, error) {
	return querySelect(ctx, s.tx, collection, where)
}

func (s *txStore) Update(ctx context.Context, collection string, id int64, fields store.Fields) (bool, error) {
	return queryUpdate(ctx, s.tx, collection, id, fields, s.now().UTC())
}

func (s *txStore) Delete(ctx context.Context, collection string, id int64) (bool, error) {
	return queryDelete(ctx, s.tx, collection, id)
}

func (s *txStore) Clear(ctx context.Context, collection string) error {
	return queryClear(ctx, s.tx, collection)
}

func (s *txStore) Drop(ctx context.Context, collection string) error {
	return queryDrop(ctx, s.tx, collection)
}

func (s *txStore) Reset(ctx context.Context) error {
	return queryReset(ctx, s.tx)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
