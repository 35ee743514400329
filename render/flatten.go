// Package render turns a nested event snapshot into template values and
// substitutes {{ key.path }} placeholders inside user-configured field
// strings. Both operations are pure.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Flatten maps every leaf scalar in data to a lowercase dotted key path.
// Containers are descended, not recorded. When two paths collide after
// lowercasing, the last writer in sorted-key depth-first order wins, which
// keeps the result deterministic.
func Flatten(data map[string]any) map[string]string {
	values := map[string]string{}
	flattenInto(values, "", data)
	return values
}

func flattenInto(values map[string]string, prefix string, node any) {
	switch typed := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flattenInto(values, joinPath(prefix, key), typed[key])
		}
	case []any:
		for index, item := range typed {
			flattenInto(values, joinPath(prefix, strconv.Itoa(index)), item)
		}
	default:
		if prefix == "" {
			return
		}
		values[strings.ToLower(prefix)] = stringifyScalar(typed)
	}
}

func joinPath(prefix string, key string) string {
	key = strings.TrimSpace(key)
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func stringifyScalar(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	default:
		return fmt.Sprint(typed)
	}
}
