// Package pathquery evaluates dotted paths and comparison predicates against
// JSON documents decoded into Go maps.
package pathquery

import (
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
)

// Split turns "a.b.c" into its segments. An empty path has no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Resolve descends doc by the dot-separated keys of path. found is false when
// a segment is missing or an intermediate node is not an object. An empty path
// resolves to doc itself. Resolve never panics on malformed input.
func Resolve(doc any, path string) (value any, found bool) {
	current := doc
	for _, key := range Split(path) {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes value at path inside doc, creating intermediate objects as
// needed. A non-object node in the way is replaced by an object.
// Setting the empty path is a no-op.
func Set(doc map[string]any, path string, value any) {
	keys := Split(path)
	if len(keys) == 0 {
		return
	}
	current := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := asObject(current[key])
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, true
	case domain.Document:
		return obj, true
	default:
		return nil, false
	}
}
