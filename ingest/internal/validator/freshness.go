package validator

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DefaultMaxSkew is the replay window used when none is configured.
const DefaultMaxSkew = 5 * time.Minute

var errNoTimestamp = errors.New("timestamp is empty")

// ParseTimestamp reads an RFC 3339 timestamp with optional fractional
// seconds. A zone designator is required.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errNoTimestamp
	}
	return time.Parse(time.RFC3339Nano, s)
}

// IsFresh reports whether claimed lies strictly within maxSkew of now.
// Unparseable timestamps are never fresh.
func IsFresh(claimed string, now time.Time, maxSkew time.Duration) bool {
	t, err := ParseTimestamp(claimed)
	if err != nil {
		return false
	}
	return absDuration(now.Sub(t)) < maxSkew
}

// FreshnessGuard rejects deliveries whose claimed send time is outside
// the replay window.
type FreshnessGuard struct {
	MaxSkew time.Duration
	Now     func() time.Time
}

// NewFreshnessGuard returns a guard using the wall clock.
func NewFreshnessGuard(maxSkew time.Duration) *FreshnessGuard {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &FreshnessGuard{MaxSkew: maxSkew, Now: time.Now}
}

// Check returns a *StaleTimestampError if claimed is stale or unreadable.
func (g *FreshnessGuard) Check(claimed string) error {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return g.CheckAt(claimed, now())
}

// CheckAt is Check against an explicit receive time.
func (g *FreshnessGuard) CheckAt(claimed string, now time.Time) error {
	t, err := ParseTimestamp(claimed)
	if err != nil {
		return &StaleTimestampError{Claimed: claimed, Err: err}
	}

	maxSkew := g.MaxSkew
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}

	skew := absDuration(now.Sub(t))
	if skew >= maxSkew {
		return &StaleTimestampError{Claimed: claimed, Skew: skew}
	}
	return nil
}

// Skew returns the absolute distance between claimed and now, or false
// if claimed cannot be parsed.
func Skew(claimed string, now time.Time) (time.Duration, bool) {
	t, err := ParseTimestamp(claimed)
	if err != nil {
		return 0, false
	}
	return absDuration(now.Sub(t)), true
}

// absDuration saturates: Time.Sub clamps to the int64 range, and the
// minimum has no positive counterpart.
func absDuration(d time.Duration) time.Duration {
	if d == math.MinInt64 {
		return math.MaxInt64
	}
	if d < 0 {
		return -d
	}
	return d
}
