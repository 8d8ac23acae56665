package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// sequencesKey is the reserved snapshot entry holding the last issued id per
// collection, so deleted ids are not handed out again after a restart.
const sequencesKey = "_sequences"

type sequenceEntry struct {
	Collection string `json:"collection"`
	LastID     int64  `json:"last_id"`
}

// loadSnapshot reads the snapshot at path into a fresh state.
func loadSnapshot(path string, now func() time.Time) (*state, error) {
	st := newState(now)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(data) == 0 {
		return st, nil
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	for name, rows := range raw {
		if name == sequencesKey {
			for _, row := range rows {
				var e sequenceEntry
				if err := json.Unmarshal(row, &e); err != nil {
					return nil, fmt.Errorf("parse snapshot %s: sequence: %w", path, err)
				}
				st.sequences[e.Collection] = e.LastID
			}
			continue
		}
		c := newCollection()
		for i, row := range rows {
			r, err := decodeRecord(row)
			if err != nil {
				return nil, fmt.Errorf("parse snapshot %s: %s[%d]: %w", path, name, i, err)
			}
			if _, dup := c.byID[r.ID]; dup {
				return nil, fmt.Errorf("parse snapshot %s: %s: duplicate id %d", path, name, r.ID)
			}
			c.records = append(c.records, r)
			c.byID[r.ID] = r
		}
		st.collections[name] = c
	}

	// Snapshots written by hand may lack sequences; never issue an id below
	// the highest one present.
	for name, c := range st.collections {
		for _, r := range c.records {
			if r.ID > st.sequences[name] {
				st.sequences[name] = r.ID
			}
		}
	}
	return st, nil
}

func decodeRecord(row json.RawMessage) (*store.Record, error) {
	var fields store.Fields
	if err := json.Unmarshal(row, &fields); err != nil {
		return nil, err
	}
	idVal, ok := fields[store.FieldID].(float64)
	if !ok || idVal <= 0 || idVal != float64(int64(idVal)) {
		return nil, fmt.Errorf("missing or invalid id %v", fields[store.FieldID])
	}
	r := &store.Record{ID: int64(idVal), Fields: fields.WithoutReserved()}

	created, err := parseTime(fields[store.FieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if created != nil {
		r.CreatedAt = *created
	}
	if r.UpdatedAt, err = parseTime(fields[store.FieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return r, nil
}

func parseTime(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string timestamp, got %T", v)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// writeSnapshot serialises st to path atomically: the data goes to a temp
// file in the same directory which is then renamed over the target.
func writeSnapshot(path string, st *state) error {
	doc := make(map[string]any, len(st.collections)+1)
	for name, c := range st.collections {
		recs := c.records
		if recs == nil {
			recs = []*store.Record{}
		}
		doc[name] = recs
	}
	seqs := make([]sequenceEntry, 0, len(st.sequences))
	for _, name := range sortedKeys(st.sequences) {
		seqs = append(seqs, sequenceEntry{Collection: name, LastID: st.sequences[name]})
	}
	doc[sequencesKey] = seqs

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) // Clean up temp file on failure
		return err
	}
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
