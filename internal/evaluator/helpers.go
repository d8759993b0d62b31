package evaluator

import (
	"encoding/json"
	"reflect"
	"sort"
)

func sortedMapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// valueEqual compares two decoded JSON values structurally.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// canonicalJSON renders a value with sorted object keys, used to compare
// values that crossed different decoders (YAML config vs JSON output).
func canonicalJSON(v any) string {
	raw, err := json.Marshal(normalize(v))
	if err != nil {
		return ""
	}
	return string(raw)
}

// normalize rewrites YAML-decoded maps/numbers into their JSON-decoded
// shapes so canonicalJSON output is comparable across sources.
func normalize(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[labelString(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalize(item)
		}
		return out
	case int:
		return float64(vv)
	case int64:
		return float64(vv)
	case float32:
		return float64(vv)
	default:
		return v
	}
}
