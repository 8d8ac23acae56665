// Package backup exports the record store as JSONL and ships the export to
// one or more destinations on a cron schedule.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// Header is the first JSONL line written by ExportJSONL.
type Header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Collections []string  `json:"collections"`
	RecordCount int       `json:"record_count"`
}

// Line wraps a single exported record with a type discriminator.
type Line struct {
	Type       string        `json:"type"`
	Collection string        `json:"collection"`
	Data       *store.Record `json:"data"`
}

// ExportJSONL writes every record of every collection to w: a header line,
// then one line per record. Collections are sorted by name and records keep
// their insertion order.
func ExportJSONL(ctx context.Context, st store.Store, w io.Writer) error {
	names, err := st.Collections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)

	records := make(map[string][]*store.Record, len(names))
	total := 0
	for _, name := range names {
		rs, err := st.List(ctx, name)
		if err != nil {
			return fmt.Errorf("list %s: %w", name, err)
		}
		records[name] = rs
		total += len(rs)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:     FormatVersion,
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		Collections: names,
		RecordCount: total,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, name := range names {
		for _, r := range records[name] {
			if err := enc.Encode(Line{Type: "record", Collection: name, Data: r}); err != nil {
				return fmt.Errorf("encode %s/%d: %w", name, r.ID, err)
			}
		}
	}
	return nil
}

// ReadHeader decodes the header line of an export.
func ReadHeader(data []byte) (Header, bool) {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	var h Header
	if err := json.Unmarshal(line, &h); err != nil || h.Type != "header" {
		return Header{}, false
	}
	return h, true
}
