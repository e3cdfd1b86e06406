package relay

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/eth-go/rpc"
)

// Backend is the chain access the relay pipeline needs. Every call is a
// single request, no retries and no timeout beyond ctx.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, to eth.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, from, to eth.Address, data []byte) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	NonceAt(ctx context.Context, account eth.Address) (uint64, error)
	SendRawTransaction(ctx context.Context, signedTx []byte) (string, error)

	// TransactionReceipt returns nil and no error while the transaction is
	// not mined yet
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)

	// ReplayCall executes data from the given sender at blockNumber and
	// returns the node's error when the call reverts
	ReplayCall(ctx context.Context, from, to eth.Address, data []byte, blockNumber uint64) error
}

// Receipt is the part of a transaction receipt the relay cares about
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	Status          uint64 `json:"status"`
}

// Succeeded reports whether the transaction executed without reverting
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

var _ Backend = (*RPCBackend)(nil)

// RPCBackend implements Backend over an Ethereum JSON-RPC endpoint
type RPCBackend struct {
	rpcClient *rpc.Client
}

func NewRPCBackend(rpcEndpoint string) *RPCBackend {
	return &RPCBackend{rpcClient: rpc.NewClient(rpcEndpoint)}
}

func (b *RPCBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.rpcClient.ChainID(ctx)
}

// CallContract makes a read-only contract call
func (b *RPCBackend) CallContract(ctx context.Context, to eth.Address, data []byte) ([]byte, error) {
	params := rpc.CallParams{
		To:   to,
		Data: data,
	}

	resultHex, err := b.rpcClient.Call(ctx, params)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(resultHex, "0x") {
		resultHex = resultHex[2:]
	}

	return hex.DecodeString(resultHex)
}

func (b *RPCBackend) EstimateGas(ctx context.Context, from, to eth.Address, data []byte) (uint64, error) {
	params := []interface{}{
		map[string]interface{}{
			"from": from.Pretty(),
			"to":   to.Pretty(),
			"data": hexutil.Encode(data),
		},
	}

	result, err := rpc.Do[string](b.rpcClient, ctx, "eth_estimateGas", params)
	if err != nil {
		return 0, err
	}

	gas, err := hexutil.DecodeUint64(result)
	if err != nil {
		return 0, fmt.Errorf("decoding gas estimate %q: %w", result, err)
	}
	return gas, nil
}

func (b *RPCBackend) GasPrice(ctx context.Context) (*big.Int, error) {
	return b.rpcClient.GasPrice(ctx)
}

func (b *RPCBackend) NonceAt(ctx context.Context, account eth.Address) (uint64, error) {
	return b.rpcClient.Nonce(ctx, account, nil)
}

func (b *RPCBackend) SendRawTransaction(ctx context.Context, signedTx []byte) (string, error) {
	return b.rpcClient.SendRawTransaction(ctx, signedTx)
}

func (b *RPCBackend) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	receipt, err := b.rpcClient.TransactionReceipt(ctx, eth.MustNewHash(txHash))
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}

	out := &Receipt{TransactionHash: txHash, BlockNumber: uint64(receipt.BlockNumber), Status: 1}
	if receipt.Status != nil {
		out.Status = uint64(*receipt.Status)
	}
	return out, nil
}

func (b *RPCBackend) ReplayCall(ctx context.Context, from, to eth.Address, data []byte, blockNumber uint64) error {
	params := rpc.CallParams{
		From: from,
		To:   to,
		Data: data,
	}

	_, err := b.rpcClient.CallAtBlock(ctx, params, rpc.BlockNumber(blockNumber))
	return err
}
