package domain

import (
	"fmt"
	"strconv"
	"strings"
)

func parseFloatStrict(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// numifyField converts a loosely-typed extracted field value to a number.
// The second return reports whether a usable number was present.
func numifyField(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		cleaned := strings.NewReplacer(",", "", "₹", "").Replace(t)
		if f, err := parseFloatStrict(cleaned); err == nil {
			return f, true
		}
		return 0, false
	case map[string]interface{}:
		if inner, ok := t["value"]; ok {
			return numifyField(inner)
		}
		return 0, false
	default:
		return 0, false
	}
}

// CoerceNumber converts a loosely-typed payload value to a number. Used by
// consumers walking nested objects (payslip salary blocks, CIBIL sections)
// where FieldFloat cannot reach.
func CoerceNumber(v interface{}) (float64, bool) {
	return numifyField(v)
}

// stringifyField renders a loosely-typed extracted field value as text.
// Extraction payloads mix plain strings, numbers, and {"value": ...} wrappers.
func stringifyField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}:
		if inner, ok := t["value"]; ok {
			return stringifyField(inner)
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
