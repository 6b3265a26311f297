package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Decode parses raw JSON into the generic form accepted by the normalizers
func Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func object(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok && obj != nil
}

func array(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// stringOr returns obj[key] when it is a string, "" otherwise
func stringOr(obj map[string]any, key string) string {
	s, _ := stringValue(obj[key])
	return s
}

// numeric accepts JSON numbers only
func numeric(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
	default:
		return 0, false
	}
	return finite(v)
}

// coercible accepts JSON numbers and numeric strings
func coercible(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		return finite(s)
	}
	return numeric(v)
}

func finite(v any) (float64, bool) {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func price(v any) (float64, bool) {
	f, ok := coercible(v)
	if !ok || f < 0 {
		return 0, false
	}
	return f, true
}
