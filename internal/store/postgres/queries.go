package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// txLockKey is the advisory lock taken by every transaction so that
// check-then-write sequences in the resource layer do not interleave.
const txLockKey = 0x73686f70

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateCollection(ctx context.Context, db executor, name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return err
}

func queryCollections(ctx context.Context, db executor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func queryInfo(ctx context.Context, db executor, name string) (*store.CollectionInfo, error) {
	info := &store.CollectionInfo{Name: name, Fields: []string{}}
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM collections WHERE name = $1),
		       (SELECT COUNT(*) FROM records WHERE collection = $1)`,
		name,
	).Scan(&info.Exists, &info.Count)
	if err != nil {
		return nil, err
	}
	if info.Count == 0 {
		return info, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT k FROM (
			SELECT jsonb_object_keys(fields) AS k FROM records WHERE collection = $1
			UNION ALL SELECT 'id' UNION ALL SELECT 'created_at'
		) keys ORDER BY k`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		info.Fields = append(info.Fields, k)
	}
	return info, rows.Err()
}

// queryInsert must run inside a transaction: the id bump and the insert are
// two statements.
func queryInsert(ctx context.Context, db executor, collection string, fields store.Fields, now time.Time) (int64, error) {
	body, err := jsonbFields(fields)
	if err != nil {
		return 0, err
	}
	if err := queryCreateCollection(ctx, db, collection); err != nil {
		return 0, fmt.Errorf("create collection %s: %w", collection, err)
	}

	var id int64
	err = db.QueryRowContext(ctx,
		`UPDATE collections SET last_id = last_id + 1 WHERE name = $1 RETURNING last_id`,
		collection,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", collection, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (collection, id, fields, created_at)
		VALUES ($1, $2, $3, $4)`,
		collection, id, body, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

func queryGet(ctx context.Context, db executor, collection string, id int64) (*store.Record, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func queryList(ctx context.Context, db executor, collection string) ([]*store.Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = $1 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// querySelect matches with JSONB containment, which for scalar values is
// exact equality.
func querySelect(ctx context.Context, db executor, collection string, where store.Fields) ([]*store.Record, error) {
	if err := store.ValidatePredicate(where); err != nil {
		return nil, err
	}
	if len(where) == 0 {
		return queryList(ctx, db, collection)
	}
	pred, err := jsonbFields(where)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = $1 AND fields @> $2::jsonb ORDER BY id`,
		collection, pred,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func queryUpdate(ctx context.Context, db executor, collection string, id int64, fields store.Fields, now time.Time) (bool, error) {
	body, err := jsonbFields(fields)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE records SET fields = fields || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2`,
		collection, id, body, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func queryDelete(ctx context.Context, db executor, collection string, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// queryClear keeps the collection row, and with it last_id.
func queryClear(ctx context.Context, db executor, collection string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM records WHERE collection = $1`, collection)
	return err
}

func queryDrop(ctx context.Context, db executor, collection string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM collections WHERE name = $1`, collection)
	return err
}

func queryReset(ctx context.Context, db executor) error {
	_, err := db.ExecContext(ctx, `DELETE FROM collections`)
	return err
}

func queryLock(ctx context.Context, db executor) error {
	_, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, txLockKey)
	return err
}
