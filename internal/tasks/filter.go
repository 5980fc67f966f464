package tasks

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lherron/tasklens/internal/domain"
)

// Filter returns, in order, the records where some value of the flattened
// record contains query, ignoring case. An empty query matches every
// record.
func Filter(records []domain.TaskRecord, query string) []domain.TaskRecord {
	if query == "" {
		return records
	}
	needle := strings.ToLower(query)
	matched := make([]domain.TaskRecord, 0, len(records))
	for _, rec := range records {
		if Matches(rec, needle) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// Matches reports whether any value of rec contains the lower-cased needle.
func Matches(rec domain.TaskRecord, needle string) bool {
	if strings.Contains(strings.ToLower(rec.ID), needle) ||
		strings.Contains(strings.ToLower(rec.CreatedTime), needle) {
		return true
	}
	for _, v := range rec.Fields {
		if strings.Contains(strings.ToLower(RenderValue(v)), needle) {
			return true
		}
	}
	return false
}

// RenderValue is the string form of a field value used for search and
// display. Maps render their values in key order, lists their elements,
// both joined by a single space.
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return formatFloat(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, RenderValue(val[k]))
		}
		return strings.Join(parts, " ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			parts = append(parts, RenderValue(elem))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(val)
	}
}

// formatFloat renders v the way the portal's number display does: plain
// decimals in [1e-6, 1e21), shortest exponent form outside it.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	s = strings.Replace(s, "e+0", "e+", 1)
	return strings.Replace(s, "e-0", "e-", 1)
}
