package scores

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ExtractValue normalizes a numeric value from the loosely typed scoreboard
// payload.
//
// Live payloads carry flat numbers, numeric strings, or nested objects such
// as {"total": 12.4} / {"appliedTotal": 12.4}. This handles all of them.
//
// Returns the scalar float64 value, and ok=false if not extractable. NaN and
// infinities are not extractable.
func ExtractValue(val any) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		if !finite(v) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && finite(f) {
			return f, true
		}
		return 0, false
	case map[string]any:
		for _, key := range []string{"appliedTotal", "total", "value"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// extractID renders a numeric or string identifier as a string.
func extractID(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return normalizeID(v)
	case json.Number:
		return normalizeID(v.String())
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		if f, ok := ExtractValue(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}
