package metatx

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SignatureLength is the size of a raw r || s || v signature
const SignatureLength = 65

// SignatureComponents is a raw signature split into the three values
// executeMetaTransaction expects. V is always 27 or 28.
type SignatureComponents struct {
	R [32]byte
	S [32]byte
	V uint8
}

// DecodeSignatureHex decodes a strictly 0x-prefixed hex signature
func DecodeSignatureHex(signature string) (*SignatureComponents, error) {
	raw, err := hexutil.Decode(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid hex string: %w", ErrMalformedSignature, signature, err)
	}
	return DecodeSignature(raw)
}

// DecodeSignature splits a 65-byte signature positionally: r = [0:32],
// s = [32:64], v = [64]. A v of 0 or 1 is shifted to 27 or 28, any other value
// outside {27, 28} is rejected.
func DecodeSignature(raw []byte) (*SignatureComponents, error) {
	if len(raw) != SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, SignatureLength, len(raw))
	}

	v, err := NormalizeV(raw[64])
	if err != nil {
		return nil, err
	}

	components := &SignatureComponents{V: v}
	copy(components.R[:], raw[0:32])
	copy(components.S[:], raw[32:64])

	return components, nil
}

// NormalizeV maps a recovery identifier to {27, 28}. Values already in that
// range are returned unchanged.
func NormalizeV(v byte) (byte, error) {
	switch v {
	case 27, 28:
		return v, nil
	case 0, 1:
		return v + 27, nil
	default:
		return 0, fmt.Errorf("%w: invalid recovery identifier %d", ErrMalformedSignature, v)
	}
}

// RecoveryID returns the raw recovery bit (0 or 1)
func (c *SignatureComponents) RecoveryID() byte {
	return c.V - 27
}

// Bytes returns r || s || v with the normalized v
func (c *SignatureComponents) Bytes() []byte {
	out := make([]byte, 0, SignatureLength)
	out = append(out, c.R[:]...)
	out = append(out, c.S[:]...)
	return append(out, c.V)
}

// Hex returns the 0x-prefixed hex encoding of Bytes
func (c *SignatureComponents) Hex() string {
	return hexutil.Encode(c.Bytes())
}
