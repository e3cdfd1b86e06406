package devenv

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/graphprotocol/metatx-relay/wallet"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/eth-go/rpc"
	"go.uber.org/zap"
)

// fundAmount is what every generated account receives from Anvil's dev account
var fundAmount, _ = new(big.Int).SetString("10000000000000000000", 10) // 10 ETH

// Account is a funded devenv account
type Account struct {
	Name       string
	Address    eth.Address
	PrivateKey *eth.PrivateKey
	// PrivateKeyHex is the key as accepted by the CLI --*-key flags
	PrivateKeyHex string
}

// Signer returns an in-process typed data signer for the account
func (a Account) Signer(chainID uint64) *wallet.Local {
	return wallet.NewLocal(a.PrivateKey, new(big.Int).SetUint64(chainID))
}

// RelayAccount returns the account as a relayer paying for meta-transactions
func (a Account) RelayAccount(chainID uint64) *relay.Account {
	return relay.NewAccount(a.PrivateKey, new(big.Int).SetUint64(chainID))
}

func newAccount(name string) (Account, error) {
	ecdsaKey, err := crypto.GenerateKey()
	if err != nil {
		return Account{}, fmt.Errorf("generating %s private key: %w", name, err)
	}

	keyHex := hex.EncodeToString(crypto.FromECDSA(ecdsaKey))
	key, err := eth.NewPrivateKey(keyHex)
	if err != nil {
		return Account{}, fmt.Errorf("loading %s private key: %w", name, err)
	}

	return Account{
		Name:          name,
		Address:       key.PublicKey().Address(),
		PrivateKey:    key,
		PrivateKeyHex: keyHex,
	}, nil
}

// newFundedAccounts generates one account per name and funds each of them
// from devAccount
func newFundedAccounts(ctx context.Context, rpcClient *rpc.Client, devAccount eth.Address, names ...string) ([]Account, error) {
	accounts := make([]Account, 0, len(names))
	for _, name := range names {
		account, err := newAccount(name)
		if err != nil {
			return nil, err
		}

		zlog.Debug("funding account", zap.String("name", name), zap.Stringer("address", account.Address))
		if err := fundFromDevAccount(ctx, rpcClient, devAccount, account.Address, fundAmount); err != nil {
			return nil, fmt.Errorf("funding %s: %w", name, err)
		}

		accounts = append(accounts, account)
	}
	return accounts, nil
}

// fundFromDevAccount sends value with eth_sendTransaction, which Anvil signs
// for its unlocked dev accounts
func fundFromDevAccount(ctx context.Context, rpcClient *rpc.Client, from, to eth.Address, amount *big.Int) error {
	params := []interface{}{
		map[string]interface{}{
			"from":  from.Pretty(),
			"to":    to.Pretty(),
			"value": fmt.Sprintf("0x%x", amount),
		},
	}

	txHash, err := rpc.Do[string](rpcClient, ctx, "eth_sendTransaction", params)
	if err != nil {
		return fmt.Errorf("sending fund transaction: %w", err)
	}

	return waitForReceipt(ctx, rpcClient, txHash)
}
