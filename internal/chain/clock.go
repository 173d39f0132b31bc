package chain

import "time"

// Clock abstracts wall time so timelock and deadline logic can be
// tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
