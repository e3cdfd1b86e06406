package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

// EIP-1193 provider error codes, plus JSON-RPC method not found
const (
	codeUserRejected      = 4001
	codeUnauthorized      = 4100
	codeUnsupported       = 4200
	codeDisconnected      = 4900
	codeChainDisconnected = 4901
	codeMethodNotFound    = -32601
)

// Remote is a wallet reached over JSON-RPC, a node with unlocked accounts or
// a signer proxy exposing eth_signTypedData_v4
type Remote struct {
	client *rpc.Client
	logger *zap.Logger
}

// DialRemote connects to the wallet at endpoint (http, ws or ipc)
func DialRemote(ctx context.Context, endpoint string) (*Remote, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %q: %w", metatx.ErrSignerUnavailable, endpoint, err)
	}
	return NewRemote(client), nil
}

func NewRemote(client *rpc.Client) *Remote {
	return &Remote{client: client, logger: zlog}
}

func (r *Remote) Close() {
	r.client.Close()
}

// RequestAccounts asks the wallet for access to its accounts, falling back
// to eth_accounts on wallets that do not know eth_requestAccounts
func (r *Remote) RequestAccounts(ctx context.Context) ([]eth.Address, error) {
	accounts, err := r.accounts(ctx, "eth_requestAccounts")
	if err != nil {
		var rpcErr rpc.Error
		if !errors.As(err, &rpcErr) || rpcErr.ErrorCode() != codeMethodNotFound {
			return nil, walletError(err)
		}

		r.logger.Debug("wallet does not support eth_requestAccounts, using eth_accounts")
		if accounts, err = r.Accounts(ctx); err != nil {
			return nil, err
		}
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: wallet exposes no account", metatx.ErrSignerUnavailable)
	}
	return accounts, nil
}

// Accounts lists the wallet accounts without prompting the user
func (r *Remote) Accounts(ctx context.Context) ([]eth.Address, error) {
	accounts, err := r.accounts(ctx, "eth_accounts")
	if err != nil {
		return nil, walletError(err)
	}
	return accounts, nil
}

func (r *Remote) accounts(ctx context.Context, method string) ([]eth.Address, error) {
	var result []string
	if err := r.client.CallContext(ctx, &result, method); err != nil {
		return nil, err
	}

	accounts := make([]eth.Address, 0, len(result))
	for _, account := range result {
		address, err := eth.NewAddress(account)
		if err != nil {
			return nil, fmt.Errorf("invalid account %q returned by wallet: %w", account, err)
		}
		accounts = append(accounts, address)
	}
	return accounts, nil
}

// ChainID returns the chain the wallet is currently connected to
func (r *Remote) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := r.client.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, walletError(err)
	}
	return (*big.Int)(&result), nil
}

// SignTypedData asks the wallet to sign message with account using
// eth_signTypedData_v4. The call blocks as long as the wallet waits on the
// user, only ctx bounds it.
func (r *Remote) SignTypedData(ctx context.Context, account eth.Address, message *metatx.TypedMessage) ([]byte, error) {
	accounts, err := r.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if !containsAddress(accounts, account) {
		return nil, fmt.Errorf("%w: account %s is not available in wallet", metatx.ErrSignerUnavailable, account.Pretty())
	}

	chainID, err := r.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if domainChainID := message.Domain.ChainID(); chainID.Cmp(domainChainID) != 0 {
		return nil, fmt.Errorf("%w: wallet on chain %s, domain on chain %s", metatx.ErrWrongNetwork, chainID, domainChainID)
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encoding typed message: %w", err)
	}

	r.logger.Debug("requesting typed data signature", zap.Stringer("account", account), zap.Stringer("chain_id", chainID))

	var signature hexutil.Bytes
	if err := r.client.CallContext(ctx, &signature, "eth_signTypedData_v4", account.Pretty(), string(payload)); err != nil {
		return nil, walletError(err)
	}
	return signature, nil
}

// walletError classifies a wallet failure into the metatx taxonomy, keeping
// the original error in the chain
func walletError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected:
			return fmt.Errorf("%w: %w", metatx.ErrUserRejected, err)
		case codeUnauthorized, codeUnsupported, codeDisconnected, codeChainDisconnected, codeMethodNotFound:
			return fmt.Errorf("%w: %w", metatx.ErrSignerUnavailable, err)
		}
		return err
	}

	// Transport level failure, the wallet could not be reached at all
	return fmt.Errorf("%w: %w", metatx.ErrSignerUnavailable, err)
}

func containsAddress(accounts []eth.Address, account eth.Address) bool {
	for _, candidate := range accounts {
		if bytes.Equal(candidate, account) {
			return true
		}
	}
	return false
}
