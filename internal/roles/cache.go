package roles

import "time"

// cached pairs a value with the instant it was fetched. Staleness is a
// pure predicate of (now, ttl), so it can be tested without waiting.
type cached[T any] struct {
	Value     T
	FetchedAt time.Time
}

// IsStale reports whether the value is older than ttl at now.
func (c cached[T]) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.FetchedAt) >= ttl
}
