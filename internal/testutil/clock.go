// Package testutil provides the deterministic collaborators tests wire
// in place of a live chain: a manual clock, an in-memory ed25519
// wallet, and a fake chain that emulates the contract's own
// enforcement (roles, timelock, meta-transaction replay protection).
package testutil

import (
	"sync"
	"time"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// ManualClock is a chain.Clock under test control.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var _ chain.Clock = (*ManualClock)(nil)
