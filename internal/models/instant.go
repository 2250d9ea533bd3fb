// Package models contains data structures for the application's domain models.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Instant is the canonical point-in-time type used across the domain model.
// Backends represent timestamps inconsistently (millisecond numbers, RFC 3339
// strings, native time values); every representation is normalized into an
// Instant at the storage boundary and only Instants circulate inside the core.
type Instant struct {
	time.Time
}

// Now returns the current instant truncated to millisecond precision,
// matching the precision persisted by every backend.
func Now() Instant {
	return Instant{time.Now().UTC().Truncate(time.Millisecond)}
}

// InstantOf wraps a time value as an Instant.
func InstantOf(t time.Time) Instant {
	return Instant{t.UTC().Truncate(time.Millisecond)}
}

// InstantOfMillis converts a Unix-millisecond timestamp to an Instant.
func InstantOfMillis(ms int64) Instant {
	return Instant{time.UnixMilli(ms).UTC()}
}

// MarshalJSON encodes the instant as Unix milliseconds.
func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.UnixMilli())
}

// UnmarshalJSON accepts Unix milliseconds, an RFC 3339 string, or null.
func (i *Instant) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	inst, ok := NormalizeTimestamp(raw)
	if !ok {
		return fmt.Errorf("unsupported timestamp representation: %s", data)
	}
	*i = inst
	return nil
}

// NormalizeTimestamp converts any backend timestamp representation into an
// Instant. It accepts nil (zero instant), time.Time, Instant, integer or
// floating-point Unix milliseconds, and RFC 3339 strings. The second return
// value is false for representations it cannot interpret.
func NormalizeTimestamp(v any) (Instant, bool) {
	switch t := v.(type) {
	case nil:
		return Instant{}, true
	case Instant:
		return t, true
	case *Instant:
		if t == nil {
			return Instant{}, true
		}
		return *t, true
	case time.Time:
		return InstantOf(t), true
	case int64:
		return InstantOfMillis(t), true
	case int:
		return InstantOfMillis(int64(t)), true
	case float64:
		return InstantOfMillis(int64(t)), true
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return Instant{}, false
		}
		return InstantOfMillis(ms), true
	case string:
		if t == "" {
			return Instant{}, true
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return InstantOf(parsed), true
		}
		return Instant{}, false
	default:
		return Instant{}, false
	}
}

// SameDay reports whether both instants fall on the same calendar day in the
// given location.
func SameDay(a, b Instant, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of whole calendar days from a to b in the
// given location. Negative when b precedes a.
func DaysBetween(a, b Instant, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, loc)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, loc)
	return int(end.Sub(start).Hours() / 24)
}
