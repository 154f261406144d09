package collector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp accepts ISO-like strings (read as UTC when zoneless) and epoch
// seconds given as a number or numeric string.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case float64:
		return epochToUTC(t), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return ts.UTC(), nil
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToUTC(f), nil
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func epochToUTC(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

// toFloat converts a JSON number or numeric string. Missing, null, non-numeric
// and non-finite values report false.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
