package metatx

import (
	"math/big"
)

// secp256k1 curve order N
var secp256k1N, _ = new(big.Int).SetString(
	"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
var secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

// IsCanonical reports whether S is in the lower half of the curve order
func (c *SignatureComponents) IsCanonical() bool {
	return new(big.Int).SetBytes(c.S[:]).Cmp(secp256k1HalfN) <= 0
}

// Canonical returns the low-S form of the signature. Both forms recover the
// same signer, contracts built on OpenZeppelin's ECDSA only accept the low one.
func (c *SignatureComponents) Canonical() *SignatureComponents {
	out := *c
	if c.IsCanonical() {
		return &out
	}

	s := new(big.Int).Sub(secp256k1N, new(big.Int).SetBytes(c.S[:]))
	out.S = [32]byte{}
	s.FillBytes(out.S[:])

	// 27 <-> 28
	out.V = 55 - out.V
	return &out
}

// SignaturesEqual compares two signatures in canonical form
func SignaturesEqual(a, b *SignatureComponents) bool {
	return *a.Canonical() == *b.Canonical()
}
