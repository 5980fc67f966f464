package render

import (
	"encoding/json"

	"github.com/lherron/tasklens/internal/domain"
)

// PlainTasks returns records as flattened maps holding only plain Go
// values, suitable for YAML encoding. json.Number becomes int64 or
// float64.
func PlainTasks(records []domain.TaskRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, plainValue(rec.Flatten()).(map[string]any))
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = plainValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = plainValue(elem)
		}
		return out
	default:
		return v
	}
}
