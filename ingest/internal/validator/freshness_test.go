package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func TestIsFresh_Boundaries(t *testing.T) {
	window := 5 * time.Minute

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"exact now", 0, true},
		{"just inside past", -(window - time.Second), true},
		{"just inside future", window - time.Second, true},
		{"exactly window past", -window, false},
		{"exactly window future", window, false},
		{"just outside past", -(window + time.Second), false},
		{"just outside future", window + time.Second, false},
		{"one hour old", -time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claimed := fixedNow.Add(tt.offset).Format(time.RFC3339Nano)
			assert.Equal(t, tt.want, IsFresh(claimed, fixedNow, window))
		})
	}
}

func TestFreshness_FarTimestamps(t *testing.T) {
	window := 5 * time.Minute
	g := &FreshnessGuard{MaxSkew: window}

	claims := []string{
		"2400-01-01T00:00:00Z",
		"9999-12-31T23:59:59Z",
		"0001-01-01T00:00:00Z",
		"1700-01-01T00:00:00Z",
	}

	for _, claimed := range claims {
		t.Run(claimed, func(t *testing.T) {
			assert.False(t, IsFresh(claimed, fixedNow, window))

			err := g.CheckAt(claimed, fixedNow)
			require.Error(t, err)
			var stale *StaleTimestampError
			require.ErrorAs(t, err, &stale)
			assert.Positive(t, stale.Skew)

			skew, ok := Skew(claimed, fixedNow)
			require.True(t, ok)
			assert.Greater(t, skew, window)
		})
	}
}

func TestIsFresh_Formats(t *testing.T) {
	window := 5 * time.Minute

	assert.True(t, IsFresh("2024-03-01T15:01:00Z", fixedNow, window))
	assert.True(t, IsFresh("2024-03-01T15:01:00.123456Z", fixedNow, window))
	assert.True(t, IsFresh("2024-03-01T10:01:00-05:00", fixedNow, window))

	assert.False(t, IsFresh("", fixedNow, window))
	assert.False(t, IsFresh("not-a-time", fixedNow, window))
	assert.False(t, IsFresh("2024-03-01 15:01:00", fixedNow, window), "zone is required")
	assert.False(t, IsFresh("2024-03-01T15:01:00", fixedNow, window), "zone is required")
}

func TestFreshnessGuard_Check(t *testing.T) {
	g := &FreshnessGuard{MaxSkew: 5 * time.Minute, Now: func() time.Time { return fixedNow }}

	require.NoError(t, g.Check(fixedNow.Add(-4*time.Minute).Format(time.RFC3339)))

	err := g.Check(fixedNow.Add(-10 * time.Minute).Format(time.RFC3339))
	var stale *StaleTimestampError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, 10*time.Minute, stale.Skew)
	assert.NoError(t, stale.Err)

	err = g.Check(fixedNow.Add(6 * time.Minute).Format(time.RFC3339))
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, 6*time.Minute, stale.Skew)
}

func TestFreshnessGuard_Unparseable(t *testing.T) {
	g := NewFreshnessGuard(0)
	assert.Equal(t, DefaultMaxSkew, g.MaxSkew)

	err := g.Check("yesterday")
	var stale *StaleTimestampError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, "yesterday", stale.Claimed)
	assert.Error(t, stale.Err)
	assert.Contains(t, err.Error(), "invalid timestamp")
}

func TestFreshnessGuard_ZeroValue(t *testing.T) {
	var g FreshnessGuard
	assert.NoError(t, g.Check(time.Now().UTC().Format(time.RFC3339Nano)))
	assert.Error(t, g.Check(time.Now().Add(-time.Hour).UTC().Format(time.RFC3339Nano)))
}

func TestFreshnessGuard_CheckAt(t *testing.T) {
	g := NewFreshnessGuard(time.Minute)

	claimed := fixedNow.Format(time.RFC3339)
	assert.NoError(t, g.CheckAt(claimed, fixedNow.Add(59*time.Second)))
	assert.Error(t, g.CheckAt(claimed, fixedNow.Add(time.Minute)))

	skew, ok := Skew(claimed, fixedNow.Add(-90*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, skew)

	_, ok = Skew("garbage", fixedNow)
	assert.False(t, ok)
}
