package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/lukelai18/ECommerce-API/internal/client"
	"github.com/lukelai18/ECommerce-API/internal/resource"
	"github.com/lukelai18/ECommerce-API/internal/ui"
)

// Output formats
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// listColumns are the fields shown by the table view of each collection.
var listColumns = map[string][]string{
	resource.Users:       {"id", "username", "email", "is_active"},
	resource.Products:    {"id", "name", "price", "stock", "is_available"},
	resource.Orders:      {"id", "user_id", "status", "total_amount", "product_ids"},
	resource.Categories:  {"id", "name", "parent_category_id", "is_active"},
	resource.Reviews:     {"id", "product_id", "user_id", "rating", "comment"},
	resource.Inventories: {"id", "product_id", "location", "quantity", "min_stock", "max_stock"},
	resource.Suppliers:   {"id", "company_name", "contact_person", "email", "country"},
}

const maxCellWidth = 40

// cellWidth shares the terminal width between ncols columns, keeping every
// cell between 12 and maxCellWidth runes.
func cellWidth(ncols int) int {
	if ncols == 0 {
		return maxCellWidth
	}
	return min(maxCellWidth, max(12, ui.TerminalWidth(120)/ncols-2))
}

// printValue writes v as JSON or YAML. It returns false for the table format.
func printValue(w io.Writer, v any) (bool, error) {
	switch outputFormat {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return true, nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("marshaling YAML: %w", err)
		}
		return true, enc.Close()
	}
	return false, nil
}

// printRecord prints one record as aligned "field: value" lines.
func printRecord(w io.Writer, obj client.Object) error {
	if done, err := printValue(w, obj); done {
		return err
	}
	keys := fieldOrder(obj)
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		val := formatCell(obj[k])
		if k == "status" {
			val = ui.RenderStatus(val)
		}
		fmt.Fprintf(w, "%-*s  %s\n", width+1, k+":", val)
	}
	return nil
}

// printRecords prints a list of records from the given collection.
func printRecords(w io.Writer, collection string, objs []client.Object) error {
	if done, err := printValue(w, objs); done {
		return err
	}
	cols := listColumns[collection]
	if cols == nil && len(objs) > 0 {
		cols = fieldOrder(objs[0])
	}

	width := cellWidth(len(cols))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, obj := range objs {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = ui.Truncate(formatCell(obj[c]), width)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	noun := collection
	if len(objs) == 1 {
		noun = singular(collection)
	}
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("\n%d %s", len(objs), noun)))
	return nil
}

// fieldOrder returns id first, timestamps last and the rest sorted.
func fieldOrder(obj client.Object) []string {
	rank := func(k string) int {
		switch k {
		case "id":
			return 0
		case "created_at", "updated_at", "last_updated":
			return 2
		}
		return 1
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return keys
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if m, ok := e.(map[string]any); ok {
				parts[i] = formatCell(m["id"])
				continue
			}
			parts[i] = formatCell(e)
		}
		return strings.Join(parts, ",")
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

func singular(collection string) string {
	if base, ok := strings.CutSuffix(collection, "ies"); ok {
		return base + "y"
	}
	return strings.TrimSuffix(collection, "s")
}
