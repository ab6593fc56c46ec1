package types

import (
	"crypto/ed25519"

	"github.com/btcnew-node/ledger/common"
)

// Verify checks b's signature against signerKey. crypto/ed25519 (stdlib
// since Go 1.13) is used directly rather than golang.org/x/crypto/ed25519,
// which is now a thin deprecated alias to the same implementation; the
// teacher's own go.mod pulls in golang.org/x/crypto for blake2b and sha3,
// not for ed25519 specifically.
func Verify(b Block, signerKey [32]byte) bool {
	sig := b.Signature()
	return ed25519.Verify(ed25519.PublicKey(signerKey[:]), b.SigningInput(), sig[:])
}

// Sign is provided for test fixtures that need to construct validly
// signed blocks; production signing is a wallet concern and out of
// scope for the ledger core.
func Sign(b Block, priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, b.SigningInput())
	var out common.Signature
	copy(out[:], sig)
	b.SetSignature(out)
}
