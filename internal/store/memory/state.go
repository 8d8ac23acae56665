package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// collection keeps records in insertion order with an id index.
type collection struct {
	records []*store.Record
	byID    map[int64]*store.Record
}

func newCollection() *collection {
	return &collection{byID: make(map[int64]*store.Record)}
}

func (c *collection) clone() *collection {
	cp := &collection{
		records: make([]*store.Record, len(c.records)),
		byID:    make(map[int64]*store.Record, len(c.byID)),
	}
	copy(cp.records, c.records)
	for id, r := range c.byID {
		cp.byID[id] = r
	}
	return cp
}

// state is the unlocked data behind a Store. Records are treated as
// immutable once stored: updates replace the pointer, so clone only has to
// copy slices and maps.
type state struct {
	collections map[string]*collection
	sequences   map[string]int64
	now         func() time.Time
}

func newState(now func() time.Time) *state {
	return &state{
		collections: make(map[string]*collection),
		sequences:   make(map[string]int64),
		now:         now,
	}
}

func (s *state) clone() *state {
	cp := &state{
		collections: make(map[string]*collection, len(s.collections)),
		sequences:   make(map[string]int64, len(s.sequences)),
		now:         s.now,
	}
	for name, c := range s.collections {
		cp.collections[name] = c.clone()
	}
	for name, seq := range s.sequences {
		cp.sequences[name] = seq
	}
	return cp
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if name == sequencesKey {
		return fmt.Errorf("collection name %q is reserved", name)
	}
	return nil
}

func (s *state) createCollection(name string) (*collection, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	c, ok := s.collections[name]
	if !ok {
		c = newCollection()
		s.collections[name] = c
	}
	return c, nil
}

func (s *state) names() []string {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *state) info(name string) *store.CollectionInfo {
	info := &store.CollectionInfo{Name: name, Fields: []string{}}
	c, ok := s.collections[name]
	if !ok {
		return info
	}
	info.Exists = true
	info.Count = len(c.records)
	seen := map[string]bool{}
	for _, r := range c.records {
		for k := range r.Fields {
			if !seen[k] {
				seen[k] = true
				info.Fields = append(info.Fields, k)
			}
		}
	}
	if info.Count > 0 {
		info.Fields = append(info.Fields, store.FieldID, store.FieldCreatedAt)
	}
	sort.Strings(info.Fields)
	return info
}

func (s *state) insert(name string, fields store.Fields) (int64, error) {
	c, err := s.createCollection(name)
	if err != nil {
		return 0, err
	}
	norm, err := store.Normalize(fields)
	if err != nil {
		return 0, err
	}
	s.sequences[name]++
	id := s.sequences[name]
	r := &store.Record{ID: id, Fields: norm.WithoutReserved(), CreatedAt: s.now().UTC()}
	c.records = append(c.records, r)
	c.byID[id] = r
	return id, nil
}

func (s *state) get(name string, id int64) *store.Record {
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	r, ok := c.byID[id]
	if !ok {
		return nil
	}
	return r.Clone()
}

func (s *state) selectWhere(name string, where store.Fields) ([]*store.Record, error) {
	if err := store.ValidatePredicate(where); err != nil {
		return nil, err
	}
	norm, err := store.Normalize(where)
	if err != nil {
		return nil, err
	}
	c, ok := s.collections[name]
	if !ok {
		return []*store.Record{}, nil
	}
	out := make([]*store.Record, 0, len(c.records))
	for _, r := range c.records {
		if r.Fields.Matches(norm) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *state) update(name string, id int64, fields store.Fields) (bool, error) {
	c, ok := s.collections[name]
	if !ok {
		return false, nil
	}
	old, ok := c.byID[id]
	if !ok {
		return false, nil
	}
	norm, err := store.Normalize(fields)
	if err != nil {
		return false, err
	}
	r := old.Clone()
	for k, v := range norm.WithoutReserved() {
		r.Fields[k] = v
	}
	now := s.now().UTC()
	r.UpdatedAt = &now
	for i, cur := range c.records {
		if cur.ID == id {
			c.records[i] = r
			break
		}
	}
	c.byID[id] = r
	return true, nil
}

func (s *state) delete(name string, id int64) bool {
	c, ok := s.collections[name]
	if !ok {
		return false
	}
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i:i], c.records[i+1:]...)
			break
		}
	}
	return true
}

// clear empties a collection but keeps its sequence so ids are not reused.
func (s *state) clear(name string) {
	if _, ok := s.collections[name]; ok {
		s.collections[name] = newCollection()
	}
}

func (s *state) drop(name string) {
	delete(s.collections, name)
	delete(s.sequences, name)
}

func (s *state) reset() {
	s.collections = make(map[string]*collection)
	s.sequences = make(map[string]int64)
}
