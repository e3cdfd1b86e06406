package relay

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/eth-go/signer/native"
	"go.uber.org/zap"
)

// Account is the relayer's own funded account, it pays for every relayed call
type Account struct {
	key     *eth.PrivateKey
	address eth.Address
	chainID *big.Int

	// mu serializes nonce selection and broadcast so concurrent relays never
	// reuse the relayer's transaction nonce
	mu        sync.Mutex
	nextNonce uint64
	hasNonce  bool
}

func NewAccount(key *eth.PrivateKey, chainID *big.Int) *Account {
	return &Account{
		key:     key,
		address: key.PublicKey().Address(),
		chainID: new(big.Int).Set(chainID),
	}
}

func (a *Account) Address() eth.Address {
	return a.address
}

// Send signs a transaction calling to with data and broadcasts it, returning
// the transaction hash
func (a *Account) Send(ctx context.Context, backend Backend, to eth.Address, gasLimit uint64, gasPrice *big.Int, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	nonce, err := backend.NonceAt(ctx, a.address)
	if err != nil {
		zlog.Error("failed to get nonce", zap.Error(err), zap.Stringer("from", a.address))
		return "", fmt.Errorf("getting relayer nonce: %w", err)
	}
	if a.hasNonce && a.nextNonce > nonce {
		nonce = a.nextNonce
	}
	zlog.Debug("got relayer nonce", zap.Uint64("nonce", nonce))

	signer, err := native.NewPrivateKeySigner(zlog, a.chainID, a.key)
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	signedTx, err := signer.SignTransaction(nonce, []byte(to), big.NewInt(0), gasLimit, gasPrice, data)
	if err != nil {
		zlog.Error("failed to sign transaction", zap.Error(err), zap.Stringer("chain_id", a.chainID))
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	txHash, err := backend.SendRawTransaction(ctx, signedTx)
	if err != nil {
		zlog.Error("failed to send transaction", zap.Error(err))
		return "", fmt.Errorf("sending transaction: %w", err)
	}

	a.nextNonce = nonce + 1
	a.hasNonce = true

	return txHash, nil
}
