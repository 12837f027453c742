package verify

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// CheckError names the check and the key path that failed.
type CheckError struct {
	Check  string
	Path   string
	Reason string
}

func (e CheckError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("verify: %s: %s", e.Check, e.Reason)
	}
	return fmt.Sprintf("verify: %s: %s: %s", e.Check, e.Path, e.Reason)
}

// Matches reports whether every key of expected is present in actual with
// an equal value. Only the top level is a subset match; nested values
// must be equal. Numbers compare by value whatever their Go type.
func Matches(actual, expected map[string]any) bool {
	return len(mismatches("", actual, expected)) == 0
}

// Diff lists the expected keys that actual does not match, sorted by key.
func Diff(actual, expected map[string]any) []string {
	diffs := mismatches("", actual, expected)
	out := make([]string, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, d.Path+": "+d.Reason)
	}
	return out
}

func mismatches(check string, actual, expected map[string]any) []CheckError {
	var out []CheckError
	for k, want := range expected {
		got, ok := actual[k]
		if !ok {
			out = append(out, CheckError{Check: check, Path: k, Reason: "missing"})
			continue
		}
		if !Equal(got, want) {
			out = append(out, CheckError{Check: check, Path: k, Reason: fmt.Sprintf("got %v want %v", got, want)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Equal compares decoded values structurally, treating all numeric types
// (including json.Number) as the same kind.
func Equal(a, b any) bool {
	if ia, ok := toInt(a); ok {
		if ib, ok := toInt(b); ok {
			return ia == ib
		}
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// toInt converts integral values exactly; floats are left to toFloat.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
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
	case float32:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
