// Package models contains domain models for promptvault.
package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimestamp_FromTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 30, 45, 500_000_000, time.UTC)

	ts, err := NewTimestamp(now)
	require.NoError(t, err)

	assert.Equal(t, now.Unix(), ts.Seconds)
	assert.Equal(t, int32(500_000_000), ts.Nanos)
	assert.Equal(t, "2025-06-15", ts.Date())
	assert.Equal(t, now.UnixMilli(), ts.UnixMilli())
}

func TestNewTimestamp_FromString(t *testing.T) {
	ts, err := NewTimestamp("2025-06-15T12:30:45Z")
	require.NoError(t, err)

	assert.Equal(t, "2025-06-15", ts.Date())
	assert.Equal(t, int32(0), ts.Nanos)

	_, err = NewTimestamp("not-a-date")
	assert.Error(t, err)
}

func TestNewTimestamp_FromRawPair(t *testing.T) {
	raw := Timestamp{Seconds: 1750000000, Nanos: 123}

	ts, err := NewTimestamp(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, ts)
}

func TestNewTimestamp_UnsupportedType(t *testing.T) {
	_, err := NewTimestamp(42)
	assert.Error(t, err)
}

func TestTimestamp_JSONRoundTrip(t *testing.T) {
	ts := Timestamp{Seconds: 1750000000, Nanos: 250}

	data, err := json.Marshal(ts)
	require.NoError(t, err)

	var decoded Timestamp
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ts, decoded)
}

func TestTimestamp_UnmarshalRFC3339String(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-06-15T12:30:45Z"`), &ts))
	assert.Equal(t, "2025-06-15", ts.Date())
}

func TestTimestamp_Before(t *testing.T) {
	a := Timestamp{Seconds: 100, Nanos: 0}
	b := Timestamp{Seconds: 100, Nanos: 1}
	c := Timestamp{Seconds: 101, Nanos: 0}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
}
