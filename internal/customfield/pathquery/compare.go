package pathquery

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
)

// Compare applies op to a resolved field value and a target.
//
// A nil field only equals a nil target. Ordering operators need a numeric
// field and target. like is a case-insensitive substring test on strings.
// in needs a list target. Type mismatches evaluate to false.
func Compare(field any, op domain.Operator, target any) bool {
	if field == nil {
		switch op {
		case domain.OpEq:
			return target == nil
		case domain.OpNeq:
			return target != nil
		default:
			return false
		}
	}

	switch op {
	case domain.OpEq:
		return equal(field, target)
	case domain.OpNeq:
		return !equal(field, target)
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return order(field, op, target)
	case domain.OpLike:
		f, ok1 := field.(string)
		t, ok2 := target.(string)
		return ok1 && ok2 && strings.Contains(strings.ToLower(f), strings.ToLower(t))
	case domain.OpIn:
		items, ok := asList(target)
		if !ok {
			return false
		}
		for _, item := range items {
			if equal(field, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func order(field any, op domain.Operator, target any) bool {
	f, ok := number(field)
	if !ok {
		return false
	}
	t, ok := number(target)
	if !ok {
		return false
	}
	switch op {
	case domain.OpGt:
		return f > t
	case domain.OpGte:
		return f >= t
	case domain.OpLt:
		return f < t
	default:
		return f <= t
	}
}

// equal compares JSON values; numbers compare by value regardless of Go type.
func equal(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if _, ok := number(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asList(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
