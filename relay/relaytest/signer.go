package relaytest

import (
	"context"
	"math/big"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/streamingfast/eth-go"
)

var _ relay.TypedDataSigner = (*KeySigner)(nil)

// KeySigner signs typed messages with a private key, standing in for a wallet
type KeySigner struct {
	Key *eth.PrivateKey
	// Err is returned instead of signing when set
	Err error
	// Mutate alters the raw signature before it is returned
	Mutate func([]byte) []byte
}

func (s *KeySigner) SignTypedData(ctx context.Context, account eth.Address, message *metatx.TypedMessage) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	raw, err := metatx.Sign(message, s.Key)
	if err != nil {
		return nil, err
	}
	if s.Mutate != nil {
		raw = s.Mutate(raw)
	}
	return raw, nil
}

// SignedRequest signs call for key at nonce in the given domain and returns
// the relay request a UI would send
func SignedRequest(domain *metatx.Domain, key *eth.PrivateKey, nonce uint64, call []byte) (*relay.Request, error) {
	from := key.PublicKey().Address()
	message := metatx.NewTypedMessage(domain, new(big.Int).SetUint64(nonce), from, call)

	raw, err := metatx.Sign(message, key)
	if err != nil {
		return nil, err
	}

	signature, err := metatx.DecodeSignature(raw)
	if err != nil {
		return nil, err
	}

	return &relay.Request{From: from, FunctionSignature: call, Signature: signature}, nil
}
