// Package models contains domain models for promptvault.
package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Timestamp is a document-style timestamp: raw seconds and nanoseconds
// since the Unix epoch. It round-trips through JSON as {seconds, nanos}
// so records written by other clients of the same backend stay readable.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// NewTimestamp builds a Timestamp from one of three input shapes:
// a time.Time, an RFC 3339 string, or an existing Timestamp
// (raw seconds/nanoseconds pair). Any other type is an error.
func NewTimestamp(v interface{}) (Timestamp, error) {
	switch t := v.(type) {
	case time.Time:
		return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", t, err)
		}
		return Timestamp{Seconds: parsed.Unix(), Nanos: int32(parsed.Nanosecond())}, nil
	case Timestamp:
		return t, nil
	default:
		return Timestamp{}, fmt.Errorf("unsupported timestamp input type %T", v)
	}
}

// TimestampNow returns the current time as a Timestamp.
func TimestampNow() Timestamp {
	ts, _ := NewTimestamp(time.Now())
	return ts
}

// Time converts the timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

// UnixMilli returns the timestamp as epoch milliseconds.
func (t Timestamp) UnixMilli() int64 {
	return t.Time().UnixMilli()
}

// Date returns the calendar date (YYYY-MM-DD) of the timestamp in UTC.
func (t Timestamp) Date() string {
	return t.Time().Format("2006-01-02")
}

// IsZero reports whether the timestamp is the zero value.
func (t Timestamp) IsZero() bool {
	return t.Seconds == 0 && t.Nanos == 0
}

// Before reports whether t is earlier than other.
func (t Timestamp) Before(other Timestamp) bool {
	if t.Seconds != other.Seconds {
		return t.Seconds < other.Seconds
	}
	return t.Nanos < other.Nanos
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	type plain Timestamp
	return json.Marshal(plain(t))
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both the
// {seconds, nanos} object form and an RFC 3339 string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ts, err := NewTimestamp(s)
		if err != nil {
			return err
		}
		*t = ts
		return nil
	}
	type plain Timestamp
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Timestamp(p)
	return nil
}
