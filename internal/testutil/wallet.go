package testutil

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// FakeWallet is an in-memory key custodian. Real deployments talk to a
// hardware or browser wallet; tests generate throwaway ed25519 keys and
// sign immediately.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeWallet struct {
	mu         sync.Mutex
	keys       map[chain.Address]ed25519.PrivateKey
	rejectNext bool
}

// NewFakeWallet creates an empty wallet.
func NewFakeWallet() *FakeWallet {
	return &FakeWallet{keys: make(map[chain.Address]ed25519.PrivateKey)}
}

// GenerateKey mints a fresh key pair and returns its address.
func (w *FakeWallet) GenerateKey() chain.Address {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("testutil: generate key: %v", err))
	}
	addr := chain.AddressFromPubKey(pub)

	w.mu.Lock()
	w.keys[addr] = priv
	w.mu.Unlock()
	return addr
}

// RejectNext makes the next RequestSignature fail as a user cancel.
func (w *FakeWallet) RejectNext() {
	w.mu.Lock()
	w.rejectNext = true
	w.mu.Unlock()
}

// RequestSignature signs the digest with the key held for signer.
func (w *FakeWallet) RequestSignature(ctx context.Context, digest []byte, signer chain.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejectNext {
		w.rejectNext = false
		return nil, fmt.Errorf("sign digest for %s: %w", signer, chain.ErrWalletRejected)
	}
	priv, ok := w.keys[signer]
	if !ok {
		return nil, fmt.Errorf("sign digest: %w: no key for %s", chain.ErrWalletRejected, signer)
	}
	return ed25519.Sign(priv, digest), nil
}

// PublicKeyFor returns the verifying key for signer.
func (w *FakeWallet) PublicKeyFor(signer chain.Address) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	priv, ok := w.keys[signer]
	if !ok {
		return nil, fmt.Errorf("public key: %w: no key for %s", chain.ErrWalletRejected, signer)
	}
	return priv.Public().(ed25519.PublicKey), nil
}

var _ chain.Wallet = (*FakeWallet)(nil)
