// Package roles resolves contract role assignments and answers
// authorization questions for workflow phases.
package roles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Read selectors for the contract's role accessors.
var (
	selOwner       = chain.SelectorFromSignature("owner()")
	selBroadcaster = chain.SelectorFromSignature("getBroadcaster()")
	selRecovery    = chain.SelectorFromSignature("getRecoveryAddress()")
	selTimelock    = chain.SelectorFromSignature("getTimeLockPeriodInSeconds()")
)

// DefaultTTL bounds how long a resolved role set may be served from
// cache. Roles can change under us at any time; a few seconds of
// staleness is acceptable for display, and authorization decisions that
// gate a state-changing call use ResolveFresh instead.
const DefaultTTL = 5 * time.Second

// RoleSet is the resolved role assignment of one contract.
type RoleSet struct {
	Owner       chain.Address
	Broadcaster chain.Address
	Recovery    chain.Address
	// Timelock is the contract's configured request-to-approval delay.
	Timelock time.Duration
}

// Resolver reads role assignments with a short-TTL cache.
type Resolver struct {
	reader chain.Reader
	clock  chain.Clock
	ttl    time.Duration

	mu    sync.Mutex
	cache map[chain.Address]cached[RoleSet]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithClock overrides the wall clock (tests).
func WithClock(clock chain.Clock) Option {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// NewResolver creates a Resolver over a chain reader.
func NewResolver(reader chain.Reader, opts ...Option) *Resolver {
	r := &Resolver{
		reader: reader,
		clock:  chain.SystemClock{},
		ttl:    DefaultTTL,
		cache:  make(map[chain.Address]cached[RoleSet]),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the role set for contract, serving from cache within
// the TTL. Callers gating a state-changing call must use ResolveFresh
// or accept staleness only within the TTL window.
func (r *Resolver) Resolve(ctx context.Context, contract chain.Address) (RoleSet, error) {
	now := r.clock.Now()

	r.mu.Lock()
	entry, ok := r.cache[contract]
	r.mu.Unlock()
	if ok && !entry.IsStale(now, r.ttl) {
		return entry.Value, nil
	}

	return r.ResolveFresh(ctx, contract)
}

// ResolveFresh bypasses the cache and performs the batched read.
// The fresh result replaces the cached value.
func (r *Resolver) ResolveFresh(ctx context.Context, contract chain.Address) (RoleSet, error) {
	set, err := r.fetch(ctx, contract)
	if err != nil {
		return RoleSet{}, err
	}

	r.mu.Lock()
	r.cache[contract] = cached[RoleSet]{Value: set, FetchedAt: r.clock.Now()}
	r.mu.Unlock()
	return set, nil
}

// Invalidate drops the cached role set for contract, forcing the next
// Resolve to hit the chain.
func (r *Resolver) Invalidate(contract chain.Address) {
	r.mu.Lock()
	delete(r.cache, contract)
	r.mu.Unlock()
}

func (r *Resolver) fetch(ctx context.Context, contract chain.Address) (RoleSet, error) {
	var set RoleSet

	owner, err := r.readAddress(ctx, contract, selOwner)
	if err != nil {
		return set, fmt.Errorf("resolve owner of %s: %w", contract, err)
	}
	broadcaster, err := r.readAddress(ctx, contract, selBroadcaster)
	if err != nil {
		return set, fmt.Errorf("resolve broadcaster of %s: %w", contract, err)
	}
	recovery, err := r.readAddress(ctx, contract, selRecovery)
	if err != nil {
		return set, fmt.Errorf("resolve recovery of %s: %w", contract, err)
	}
	raw, err := r.reader.ReadState(ctx, contract, selTimelock, nil)
	if err != nil {
		return set, fmt.Errorf("resolve timelock of %s: %w", contract, err)
	}

	set = RoleSet{
		Owner:       owner,
		Broadcaster: broadcaster,
		Recovery:    recovery,
		Timelock:    time.Duration(chain.WordToUint64(raw)) * time.Second,
	}
	return set, nil
}

func (r *Resolver) readAddress(ctx context.Context, contract chain.Address, sel chain.Selector) (chain.Address, error) {
	raw, err := r.reader.ReadState(ctx, contract, sel, nil)
	if err != nil {
		return chain.ZeroAddress, err
	}
	return chain.WordToAddress(raw), nil
}
