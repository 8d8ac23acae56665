package resource

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/lukelai18/ECommerce-API/internal/model"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
)

// filterable lists, per collection, the scalar fields that list endpoints
// accept as equality filters.
var filterable = map[string]map[string]fieldKind{
	Users: {
		"username":  kindString,
		"email":     kindString,
		"is_active": kindBool,
	},
	Products: {
		"name":         kindString,
		"price":        kindFloat,
		"stock":        kindInt,
		"is_available": kindBool,
	},
	Orders: {
		"user_id":      kindInt,
		"status":       kindString,
		"total_amount": kindFloat,
	},
	Categories: {
		"name":               kindString,
		"parent_category_id": kindInt,
		"is_active":          kindBool,
	},
	Reviews: {
		"product_id": kindInt,
		"user_id":    kindInt,
		"rating":     kindInt,
	},
	Inventories: {
		"product_id": kindInt,
		"location":   kindString,
	},
	Suppliers: {
		"company_name": kindString,
		"country":      kindString,
		"is_active":    kindBool,
	},
}

// ParseFilter converts query parameters into an equality predicate for the
// collection. Unknown keys and unparsable values yield a *model.ValidationError.
func ParseFilter(collection string, q url.Values) (store.Fields, error) {
	schema, ok := filterable[collection]
	if !ok {
		return nil, &NotFoundError{Resource: "collection", Key: collection}
	}

	where := store.Fields{}
	var ve model.ValidationError
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		kind, ok := schema[k]
		if !ok {
			ve.Add(k, fmt.Sprintf("cannot filter %s by %q", collection, k))
			continue
		}
		if len(q[k]) > 1 {
			ve.Add(k, fmt.Sprintf("given %d times; filters match a single value", len(q[k])))
			continue
		}
		raw := q.Get(k)
		switch kind {
		case kindString:
			where[k] = raw
		case kindInt:
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				ve.Add(k, fmt.Sprintf("expected an integer, got %q", raw))
				continue
			}
			where[k] = v
		case kindFloat:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				ve.Add(k, fmt.Sprintf("expected a number, got %q", raw))
				continue
			}
			where[k] = v
		case kindBool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				ve.Add(k, fmt.Sprintf("expected true or false, got %q", raw))
				continue
			}
			where[k] = v
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	return where, nil
}
