package datasource

import (
	"fmt"
	"time"
)

// Plain converts a record into JSON-shaped data (map[string]any, []any and
// scalars) so it can be handed to query engines and encoders. Nested records
// and record slices are converted recursively.
func Plain(rec Record) map[string]any {
	out := make(map[string]any, len(rec.Keys()))
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		out[k] = PlainValue(v)
	}
	return out
}

// PlainValue is the value-level counterpart of Plain.
func PlainValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case Record:
		return Plain(value)
	case []Record:
		items := make([]any, 0, len(value))
		for _, rec := range value {
			items = append(items, Plain(rec))
		}
		return items
	case []any:
		items := make([]any, 0, len(value))
		for _, item := range value {
			items = append(items, PlainValue(item))
		}
		return items
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = PlainValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[fmt.Sprint(k)] = PlainValue(item)
		}
		return out
	case time.Time:
		return value.Format(time.RFC3339Nano)
	case string, bool, float64, int:
		return value
	case int64:
		return int(value)
	case int32:
		return int(value)
	case uint64:
		return float64(value)
	case float32:
		return float64(value)
	default:
		if f, ok := toFloat(value); ok {
			return f
		}
		return fmt.Sprint(value)
	}
}
