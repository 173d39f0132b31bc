// Package keystore is a file-backed implementation of the wallet
// surface: ed25519 seeds in a JSON file, keyed by address. It stands in
// for an external custodian in CLI use; the engine never sees the seeds
// either way, only signatures.
package keystore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Keystore holds signing keys loaded from a key file.
type Keystore struct {
	mu   sync.Mutex
	path string
	keys map[chain.Address]ed25519.PrivateKey
}

// Load reads the key file at path. The file must not be readable by
// group or world.
func Load(path string) (*Keystore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("open keystore %s: permissions %04o are too open, want 0600", path, info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var seeds map[string]string
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse keystore %s: %w", path, err)
	}

	ks := &Keystore{path: path, keys: make(map[chain.Address]ed25519.PrivateKey, len(seeds))}
	for addrHex, seedHex := range seeds {
		addr, err := chain.ParseAddress(addrHex)
		if err != nil {
			return nil, fmt.Errorf("keystore %s: %w", path, err)
		}
		seed, err := hex.DecodeString(seedHex)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("keystore %s: malformed seed for %s", path, addr)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		derived := chain.AddressFromPubKey(priv.Public().(ed25519.PublicKey))
		if derived != addr {
			return nil, fmt.Errorf("keystore %s: seed for %s derives %s", path, addr, derived)
		}
		ks.keys[addr] = priv
	}
	return ks, nil
}

// Create writes a new key file with one freshly generated key and
// returns its address.
func Create(path string) (chain.Address, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return chain.ZeroAddress, fmt.Errorf("generate key: %w", err)
	}
	addr := chain.AddressFromPubKey(pub)

	seeds := map[string]string{addr.String(): hex.EncodeToString(priv.Seed())}
	data, err := json.MarshalIndent(seeds, "", "  ")
	if err != nil {
		return chain.ZeroAddress, fmt.Errorf("encode keystore: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return chain.ZeroAddress, fmt.Errorf("write keystore: %w", err)
	}
	return addr, nil
}

// Addresses returns the addresses this keystore can sign for.
func (k *Keystore) Addresses() []chain.Address {
	k.mu.Lock()
	defer k.mu.Unlock()
	addrs := make([]chain.Address, 0, len(k.keys))
	for addr := range k.keys {
		addrs = append(addrs, addr)
	}
	return addrs
}

// RequestSignature implements chain.Wallet.
func (k *Keystore) RequestSignature(ctx context.Context, digest []byte, signer chain.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	priv, ok := k.keys[signer]
	k.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sign digest: %w: keystore holds no key for %s", chain.ErrWalletRejected, signer)
	}
	return ed25519.Sign(priv, digest), nil
}

// PublicKeyFor implements chain.Wallet.
func (k *Keystore) PublicKeyFor(signer chain.Address) ([]byte, error) {
	k.mu.Lock()
	priv, ok := k.keys[signer]
	k.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("public key: %w: keystore holds no key for %s", chain.ErrWalletRejected, signer)
	}
	return priv.Public().(ed25519.PublicKey), nil
}

var _ chain.Wallet = (*Keystore)(nil)
