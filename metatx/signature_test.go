package metatx

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/streamingfast/eth-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawSignature(v byte) []byte {
	raw := make([]byte, SignatureLength)
	for i := 0; i < 32; i++ {
		raw[i] = 0x11
		raw[32+i] = 0x22
	}
	raw[64] = v
	return raw
}

func TestDecodeSignature(t *testing.T) {
	components, err := DecodeSignature(rawSignature(28))
	require.NoError(t, err)

	assert.Equal(t, bytes.Repeat([]byte{0x11}, 32), components.R[:])
	assert.Equal(t, bytes.Repeat([]byte{0x22}, 32), components.S[:])
	assert.Equal(t, uint8(28), components.V)
	assert.Equal(t, byte(1), components.RecoveryID())
}

func TestDecodeSignature_RoundTrip(t *testing.T) {
	for _, v := range []byte{0, 1, 27, 28} {
		raw := rawSignature(v)

		components, err := DecodeSignature(raw)
		require.NoError(t, err)

		reassembled := components.Bytes()
		if v < 27 {
			reassembled[64] -= 27
		}
		require.Equal(t, raw, reassembled, "v=%d", v)
	}
}

func TestNormalizeV(t *testing.T) {
	for _, v := range []byte{0, 1, 27, 28} {
		normalized, err := NormalizeV(v)
		require.NoError(t, err)
		require.Contains(t, []byte{27, 28}, normalized)

		again, err := NormalizeV(normalized)
		require.NoError(t, err)
		require.Equal(t, normalized, again, "normalization must be idempotent")
	}

	for _, v := range []byte{2, 26, 29, 35, 255} {
		_, err := NormalizeV(v)
		require.ErrorIs(t, err, ErrMalformedSignature, "v=%d", v)
	}
}

func TestDecodeSignature_Malformed(t *testing.T) {
	t.Run("64 bytes", func(t *testing.T) {
		_, err := DecodeSignature(make([]byte, 64))
		require.ErrorIs(t, err, ErrMalformedSignature)
	})

	t.Run("66 bytes", func(t *testing.T) {
		_, err := DecodeSignature(make([]byte, 66))
		require.ErrorIs(t, err, ErrMalformedSignature)
	})

	t.Run("exotic v", func(t *testing.T) {
		_, err := DecodeSignature(rawSignature(5))
		require.ErrorIs(t, err, ErrMalformedSignature)
	})
}

func TestDecodeSignatureHex(t *testing.T) {
	raw := rawSignature(1)

	components, err := DecodeSignatureHex(hexutil.Encode(raw))
	require.NoError(t, err)
	require.Equal(t, uint8(28), components.V)
	require.True(t, strings.HasPrefix(components.Hex(), "0x"))

	cases := map[string]string{
		"missing prefix": hexutil.Encode(raw)[2:],
		"not hex":        "0x" + strings.Repeat("zz", SignatureLength),
		"odd length":     hexutil.Encode(raw) + "1",
		"64 bytes":       hexutil.Encode(raw[:64]),
		"empty":          "",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSignatureHex(input)
			require.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestSign_RecoverSigner(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)
	sender := key.PublicKey().Address()

	message := NewTypedMessage(testDomain(), big.NewInt(5), sender, []byte("setQuote('hello')"))

	signature, err := Sign(message, key)
	require.NoError(t, err)
	require.Len(t, signature, SignatureLength)
	require.Contains(t, []byte{27, 28}, signature[64])

	components, err := DecodeSignature(signature)
	require.NoError(t, err)
	require.Contains(t, []uint8{27, 28}, components.V)

	recovered, err := RecoverSigner(message, signature)
	require.NoError(t, err)
	require.True(t, addressesEqual(sender, recovered))

	signer, err := VerifySigner(message, signature)
	require.NoError(t, err)
	require.True(t, addressesEqual(sender, signer))
}

func TestSign_Layout(t *testing.T) {
	for i := 0; i < 20; i++ {
		key, err := eth.NewRandomPrivateKey()
		require.NoError(t, err)
		sender := key.PublicKey().Address()

		message := NewTypedMessage(testDomain(), big.NewInt(int64(i)), sender, []byte{byte(i), 0x42})
		signature, err := Sign(message, key)
		require.NoError(t, err)
		require.Contains(t, []byte{27, 28}, signature[64], "v must be the last byte")

		// go-ethereum expects r || s || recovery id, independent of our decoder
		geth := append([]byte{}, signature[:64]...)
		geth = append(geth, signature[64]-27)
		hash := message.Hash()
		pubKey, err := crypto.SigToPub(hash[:], geth)
		require.NoError(t, err)
		assert.Equal(t, sender.Pretty(), eth.Address(crypto.PubkeyToAddress(*pubKey).Bytes()).Pretty())

		recovered, err := RecoverSigner(message, signature)
		require.NoError(t, err)
		assert.Equal(t, sender.Pretty(), recovered.Pretty())
	}
}

func TestVerifySigner_Mismatch(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)

	other := eth.MustNewAddress("0x3333333333333333333333333333333333333333")
	message := NewTypedMessage(testDomain(), big.NewInt(0), other, []byte{1})

	signature, err := Sign(message, key)
	require.NoError(t, err)

	_, err = VerifySigner(message, signature)
	require.ErrorIs(t, err, ErrSignerMismatch)
}

func TestVerifySigner_StaleNonce(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)
	sender := key.PublicKey().Address()

	signed := NewTypedMessage(testDomain(), big.NewInt(4), sender, []byte{1})
	signature, err := Sign(signed, key)
	require.NoError(t, err)

	current := NewTypedMessage(testDomain(), big.NewInt(5), sender, []byte{1})
	_, err = VerifySigner(current, signature)
	require.ErrorIs(t, err, ErrSignerMismatch)
}

func TestIsNonceMismatch(t *testing.T) {
	assert.False(t, IsNonceMismatch(nil))
	assert.True(t, IsNonceMismatch(ErrNonceMismatch))
	assert.True(t, IsNonceMismatch(errorString("execution reverted: Signer and signature do not match")))
	assert.True(t, IsNonceMismatch(errorString("invalid nonce")))
	assert.True(t, IsNonceMismatch(errorString("execution reverted: nonce mismatch")))
	assert.False(t, IsNonceMismatch(errorString("execution reverted: Function call not successful")))
}

func TestIsNonceMismatch_RelayerAccountNonce(t *testing.T) {
	assert.False(t, IsNonceMismatch(errorString("sending transaction: nonce too low")))
	assert.False(t, IsNonceMismatch(errorString("nonce too high")))
	assert.False(t, IsNonceMismatch(errorString("replacement transaction underpriced: nonce already used")))
}

type errorString string

func (e errorString) Error() string { return string(e) }
