package metatx

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/streamingfast/eth-go"
)

// Sign signs the typed message digest with key and returns r || s || v with
// v in {27, 28}, the same layout wallets return for eth_signTypedData_v4.
// eth-go produces v || r || s, the inverted form moves v last.
func Sign(message *TypedMessage, key *eth.PrivateKey) ([]byte, error) {
	messageHash := message.Hash()

	sig, err := key.Sign(messageHash)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}

	inverted := sig.ToInverted()
	out := make([]byte, SignatureLength)
	copy(out, inverted[:])
	if out[64] < 27 {
		out[64] += 27
	}

	return out, nil
}

// RecoverSigner recovers the address that produced signature over message
func RecoverSigner(message *TypedMessage, signature []byte) (eth.Address, error) {
	components, err := DecodeSignature(signature)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, 0, SignatureLength)
	sig = append(sig, components.R[:]...)
	sig = append(sig, components.S[:]...)
	sig = append(sig, components.RecoveryID())

	messageHash := message.Hash()
	pubKey, err := crypto.SigToPub(messageHash[:], sig)
	if err != nil {
		return nil, fmt.Errorf("%w: recovering public key: %w", ErrMalformedSignature, err)
	}

	return eth.Address(crypto.PubkeyToAddress(*pubKey).Bytes()), nil
}

// VerifySigner checks that signature was produced by the message sender. A
// match does not guarantee the contract accepts it, the nonce may have moved.
func VerifySigner(message *TypedMessage, signature []byte) (eth.Address, error) {
	signer, err := RecoverSigner(message, signature)
	if err != nil {
		return nil, err
	}

	if !addressesEqual(signer, message.Message.From) {
		return signer, fmt.Errorf("%w: recovered %s, expected %s", ErrSignerMismatch, signer.Pretty(), message.Message.From.Pretty())
	}
	return signer, nil
}

func addressesEqual(a, b eth.Address) bool {
	return bytes.Equal(a, b)
}
