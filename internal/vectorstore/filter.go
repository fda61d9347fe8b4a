package vectorstore

import "fmt"

// Matches evaluates a Filter against a payload. A nil or empty filter
// matches everything.
func Matches(payload map[string]any, filter *Filter) bool {
	if filter == nil || len(filter.Conditions) == 0 {
		return true
	}
	for _, c := range filter.Conditions {
		if !matchCondition(payload, c) {
			return false
		}
	}
	return true
}

func matchCondition(payload map[string]any, c Condition) bool {
	v, ok := payload[c.Field]
	switch c.Op {
	case FilterEquals:
		return ok && equalValue(v, c.Value)
	case FilterInSet:
		if !ok {
			return false
		}
		for _, want := range c.Values {
			if equalValue(v, want) {
				return true
			}
		}
		return false
	case FilterNotInSet:
		if !ok {
			return true
		}
		for _, want := range c.Values {
			if equalValue(v, want) {
				return false
			}
		}
		return true
	case FilterRange:
		if !ok {
			return false
		}
		n, ok := toFloat64(v)
		if !ok {
			return false
		}
		return n >= c.Min && n <= c.Max
	default:
		return false
	}
}

func equalValue(a, b any) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
