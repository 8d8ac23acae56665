package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// recordColumns is the column list used for SELECT statements on the records table.
const recordColumns = `id, fields, created_at, updated_at`

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRecord scans a single row into a store.Record.
// The row must contain columns in the order defined by recordColumns.
func scanRecord(row scannable) (*store.Record, error) {
	var (
		r         store.Record
		fields    []byte
		updatedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &fields, &r.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Fields = store.Fields{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &r.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields of record %d: %w", r.ID, err)
		}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		r.UpdatedAt = &t
	}
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]*store.Record, error) {
	defer rows.Close()
	out := []*store.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return out, nil
}

// jsonbFields normalizes f and encodes it for a JSONB parameter.
func jsonbFields(f store.Fields) ([]byte, error) {
	norm, err := store.Normalize(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(norm.WithoutReserved())
}
