// Package instant normalizes the timestamp representations seen at the
// storage and API boundaries. The canonical on-wire form is epoch
// milliseconds; internal code only ever sees time.Time in UTC.
package instant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse accepts a timestamp as epoch milliseconds (integer or float), an
// ISO-8601 / RFC3339 string, a numeric string, or a time.Time, and returns
// the normalized UTC instant.
func Parse(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case int64:
		return FromMillis(t), nil
	case int:
		return FromMillis(int64(t)), nil
	case float64:
		return FromMillis(int64(t)), nil
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("parse instant %q: %w", t.String(), err)
		}
		return FromMillis(ms), nil
	case string:
		return parseString(t)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("parse instant: unsupported type %T", v)
	}
}

func parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromMillis(ms), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse instant: unrecognized value %q", s)
}

// FromMillis converts epoch milliseconds to a UTC time.Time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ToMillis converts a time.Time to epoch milliseconds; zero times map to 0.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Time wraps time.Time with epoch-millisecond JSON encoding. Decoding also
// tolerates ISO-8601 strings so older clients keep working.
type Time struct {
	time.Time
}

// At wraps a time.Time.
func At(t time.Time) Time {
	return Time{t.UTC()}
}

// Now wraps the current time.
func Now() Time {
	return At(time.Now())
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
