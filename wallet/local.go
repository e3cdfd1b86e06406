package wallet

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/streamingfast/eth-go"
)

// Local signs typed messages with an in-process private key. It is meant for
// development and the CLI, key management is left to the caller.
type Local struct {
	key     *eth.PrivateKey
	address eth.Address
	chainID *big.Int
}

// NewLocal returns a signer for key that only accepts messages whose domain
// salt encodes chainID
func NewLocal(key *eth.PrivateKey, chainID *big.Int) *Local {
	return &Local{
		key:     key,
		address: key.PublicKey().Address(),
		chainID: new(big.Int).Set(chainID),
	}
}

// NewLocalFromHex parses a hex private key, with or without 0x prefix
func NewLocalFromHex(privateKeyHex string, chainID *big.Int) (*Local, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return NewLocal(key, chainID), nil
}

// ParsePrivateKey accepts a hex private key with or without 0x prefix, the
// form Anvil and most wallets print keys in
func ParsePrivateKey(privateKeyHex string) (*eth.PrivateKey, error) {
	key, err := eth.NewPrivateKey(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func (l *Local) Address() eth.Address {
	return l.address
}

func (l *Local) Accounts(ctx context.Context) ([]eth.Address, error) {
	return []eth.Address{l.address}, nil
}

// SignTypedData returns r || s || v with v in {27, 28}
func (l *Local) SignTypedData(ctx context.Context, account eth.Address, message *metatx.TypedMessage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !bytes.Equal(account, l.address) {
		return nil, fmt.Errorf("%w: account %s is not managed by this signer", metatx.ErrSignerUnavailable, account.Pretty())
	}

	if domainChainID := message.Domain.ChainID(); domainChainID.Cmp(l.chainID) != 0 {
		return nil, fmt.Errorf("%w: signer on chain %s, domain on chain %s", metatx.ErrWrongNetwork, l.chainID, domainChainID)
	}

	return metatx.Sign(message, l.key)
}
