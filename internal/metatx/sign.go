package metatx

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Sign obtains a signature for payload from the wallet custodian and
// assembles the envelope.
//
// The codec never sees key material: only the digest travels to the
// wallet. The returned envelope is validated before it is handed back,
// so a misbehaving wallet (wrong key, garbage signature) surfaces here
// and nothing half-signed escapes to the pending store. A cancelled
// prompt surfaces the wallet's chain.ErrWalletRejected unchanged.
func Sign(ctx context.Context, payload UnsignedPayload, wallet chain.Wallet) (*Signed, error) {
	digest, err := Digest(&payload)
	if err != nil {
		return nil, err
	}

	sig, err := wallet.RequestSignature(ctx, digest, payload.Signer)
	if err != nil {
		return nil, fmt.Errorf("request signature: %w", err)
	}

	pub, err := wallet.PublicKeyFor(payload.Signer)
	if err != nil {
		return nil, fmt.Errorf("fetch signer public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("fetch signer public key: bad key length %d", len(pub))
	}
	if got := chain.AddressFromPubKey(pub); got != payload.Signer {
		return nil, fmt.Errorf("wallet returned key for %s, want %s: %w", got, payload.Signer, ErrSignerMismatch)
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
		return nil, fmt.Errorf("wallet signature does not verify: %w", ErrInvalidSignature)
	}

	return &Signed{
		Payload:   payload,
		Digest:    digest,
		Signature: sig,
		PublicKey: pub,
	}, nil
}
