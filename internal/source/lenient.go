package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/mcamposv/metrica/internal/models"
)

// Lenient numeric coercion, isolated here on purpose: upstream feeds omit
// fields on zero-activity days and occasionally ship numbers as strings. A
// missing or malformed value reads as 0 rather than failing the whole batch.
// Swap these two functions for strict variants if that policy ever changes;
// merge and rate logic never see the difference.

func lenientInt(v any) int {
	switch n := v.(type) {
	case float64: // encoding de JSON entrega números como float64
		if n < 0 {
			return 0
		}
		return int(n)
	case int:
		if n < 0 {
			return 0
		}
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || f < 0 {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}

func lenientFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0
		}
		return n
	case int:
		if n < 0 {
			return 0
		}
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || f < 0 {
			return 0
		}
		return f
	default:
		return 0
	}
}

// dayLayouts son los formatos de fecha que aceptamos de los upstreams.
var dayLayouts = []string{
	models.DateFormat,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseDay parses an upstream date value to UTC midnight. The date is the one
// field that cannot be coerced: a row without a usable date has no bucket.
func parseDay(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), true
		}
	}
	return time.Time{}, false
}
