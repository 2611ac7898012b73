package matching

import (
	"fmt"
	"math"
	"time"
)

// Unit conversion is deterministic and best-effort: canonical units pass
// through untouched, known alternates are converted, and unrecognized units
// fall back to the raw value rather than dropping the metric.

// NormalizeDistance converts a vendor distance + unit pair to meters.
func NormalizeDistance(value *float64, unit string) *float64 {
	value = Sanitize(value)
	if value == nil {
		return nil
	}
	switch unit {
	case "km":
		v := *value * 1000
		return &v
	default: // "m" and unrecognized units pass through
		v := *value
		return &v
	}
}

// NormalizeEnergy converts a vendor energy + unit pair to kilocalories.
func NormalizeEnergy(value *float64, unit string) *float64 {
	value = Sanitize(value)
	if value == nil {
		return nil
	}
	switch unit {
	case "cal":
		v := *value / 1000
		return &v
	default: // "kcal" and unrecognized units pass through
		v := *value
		return &v
	}
}

// Sanitize degrades malformed numeric fields (non-finite or negative) to
// unknown instead of letting them fault downstream arithmetic.
func Sanitize(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}

// WorkoutID resolves a stable workout identifier using the fallback chain:
// vendor UUID, vendor id, vendor session id, then a synthetic key built from
// the start/end instants and activity type. A workout with no resolvable id
// cannot be deduplicated safely and must be excluded from matching.
func WorkoutID(uuid, id, sessionID string, start, end *time.Time, activityType int) (string, bool) {
	switch {
	case uuid != "":
		return uuid, true
	case id != "":
		return id, true
	case sessionID != "":
		return sessionID, true
	case start != nil && end != nil:
		return fmt.Sprintf("%s-%s-%d",
			start.UTC().Format(time.RFC3339),
			end.UTC().Format(time.RFC3339),
			activityType,
		), true
	default:
		return "", false
	}
}
