// Package relaytest provides an in-memory meta-transaction contract and an
// in-process signer for testing code built on the relay package.
package relaytest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/streamingfast/eth-go"
)

var (
	ContractAddress = eth.MustNewAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	ChainID         = big.NewInt(31337)

	// GasLimit is the estimate returned for every accepted call
	GasLimit = uint64(120_000)
	// GasPrice is the gas price the backend reports
	GasPrice = big.NewInt(1_000_000_000)

	// SignerMismatchReason is the revert reason of a meta-transaction whose
	// signature does not match the sender at the current nonce
	SignerMismatchReason = "execution reverted: Signer and signature do not match"

	// CallRevertedReason is the revert reason of transactions mined while
	// RevertOnChain is set
	CallRevertedReason = "execution reverted: Function call not successful"
)

var (
	executeMetaTransactionInputs = arguments("address", "bytes", "bytes32", "bytes32", "uint8")
	setQuoteInputs               = arguments("string")
	addressInputs                = arguments("address")
	uint256Outputs               = arguments("uint256")
	getQuoteOutputs              = arguments("string", "address")
)

// Selector returns the 4 bytes method selector of a Solidity signature
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// DecodeSetQuote returns the value carried by setQuote(string) calldata
func DecodeSetQuote(call []byte) (string, error) {
	if len(call) < 4 || !bytes.Equal(call[:4], Selector("setQuote(string)")) {
		return "", errors.New("not a setQuote call")
	}
	values, err := setQuoteInputs.Unpack(call[4:])
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

var _ relay.Backend = (*Backend)(nil)

// Backend emulates a chain holding the TestContract meta-transaction
// contract. It checks signatures against the current per-user nonce,
// consumes the nonce and applies setQuote. Transactions are mined as soon as
// they are sent.
type Backend struct {
	mu sync.Mutex

	chainID *big.Int
	domain  *metatx.Domain

	nonces       map[string]*big.Int
	quote        string
	owner        eth.Address
	relayerNonce uint64
	receipts     map[string]*relay.Receipt
	reverts      map[uint64]error

	// EstimateErr makes every gas estimation fail with it
	EstimateErr error
	// RevertOnChain mines every transaction with a failed status
	RevertOnChain bool
	// PendingPolls is the number of receipt lookups answered with "not mined"
	PendingPolls int

	estimateCalls int
	sendCalls     int
}

func NewBackend() *Backend {
	return &Backend{
		chainID:  new(big.Int).Set(ChainID),
		domain:   metatx.NewDomain("TestContract", "1", ChainID.Uint64(), ContractAddress),
		nonces:   map[string]*big.Int{},
		owner:    eth.Address(make([]byte, 20)),
		receipts: map[string]*relay.Receipt{},
		reverts:  map[uint64]error{},
	}
}

// SetNonce forces the meta-transaction nonce of account
func (b *Backend) SetNonce(account eth.Address, nonce uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces[account.Pretty()] = new(big.Int).SetUint64(nonce)
}

// SetState forces the contract quote and owner
func (b *Backend) SetState(quote string, owner eth.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quote = quote
	b.owner = owner
}

// Counts returns how many gas estimations and raw transactions were received
func (b *Backend) Counts() (estimate, send int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.estimateCalls, b.sendCalls
}

func (b *Backend) nonceOf(account eth.Address) *big.Int {
	if nonce, found := b.nonces[account.Pretty()]; found {
		return nonce
	}
	return new(big.Int)
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) CallContract(ctx context.Context, to eth.Address, data []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) < 4 {
		return nil, errors.New("execution reverted")
	}

	switch {
	case bytes.Equal(data[:4], Selector("getNonce(address)")):
		values, err := addressInputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		account := values[0].(common.Address)
		return uint256Outputs.Pack(b.nonceOf(eth.Address(account.Bytes())))

	case bytes.Equal(data[:4], Selector("getQuote()")):
		return getQuoteOutputs.Pack(b.quote, common.BytesToAddress(b.owner))
	}

	return nil, fmt.Errorf("execution reverted: unknown selector %x", data[:4])
}

// execute runs executeMetaTransaction calldata, b.mu must be held
func (b *Backend) execute(data []byte, apply bool) error {
	if len(data) < 4 || !bytes.Equal(data[:4], Selector("executeMetaTransaction(address,bytes,bytes32,bytes32,uint8)")) {
		return errors.New("execution reverted: unexpected call")
	}

	values, err := executeMetaTransactionInputs.Unpack(data[4:])
	if err != nil {
		return err
	}

	from := eth.Address(values[0].(common.Address).Bytes())
	functionSignature := values[1].([]byte)
	signature := &metatx.SignatureComponents{
		R: values[2].([32]byte),
		S: values[3].([32]byte),
		V: values[4].(uint8),
	}

	message := metatx.NewTypedMessage(b.domain, b.nonceOf(from), from, functionSignature)
	signer, err := metatx.RecoverSigner(message, signature.Bytes())
	if err != nil || !bytes.Equal(signer, from) {
		return errors.New(SignerMismatchReason)
	}

	if !apply {
		return nil
	}

	b.nonces[from.Pretty()] = new(big.Int).Add(b.nonceOf(from), big.NewInt(1))

	if quote, err := DecodeSetQuote(functionSignature); err == nil {
		b.quote = quote
		b.owner = from
	}
	return nil
}

func (b *Backend) EstimateGas(ctx context.Context, from, to eth.Address, data []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.estimateCalls++
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	if err := b.execute(data, false); err != nil {
		return 0, err
	}
	return GasLimit, nil
}

func (b *Backend) GasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(GasPrice), nil
}

func (b *Backend) NonceAt(ctx context.Context, account eth.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relayerNonce, nil
}

func (b *Backend) SendRawTransaction(ctx context.Context, signedTx []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sendCalls++

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(signedTx); err != nil {
		return "", fmt.Errorf("decoding raw transaction: %w", err)
	}
	if tx.Nonce() < b.relayerNonce {
		return "", errors.New("nonce too low")
	}
	b.relayerNonce = tx.Nonce() + 1

	// One transaction per block, the first one mined in block 1
	blockNumber := tx.Nonce() + 1

	var revertErr error
	if b.RevertOnChain {
		revertErr = errors.New(CallRevertedReason)
	} else {
		revertErr = b.execute(tx.Data(), true)
	}

	status := uint64(1)
	if revertErr != nil {
		status = 0
		b.reverts[blockNumber] = revertErr
	}

	hash := tx.Hash().Hex()
	b.receipts[hash] = &relay.Receipt{TransactionHash: hash, BlockNumber: blockNumber, Status: status}
	return hash, nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash string) (*relay.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.PendingPolls > 0 {
		b.PendingPolls--
		return nil, nil
	}
	return b.receipts[txHash], nil
}

// ReplayCall returns the error of the transaction reverted in blockNumber
func (b *Backend) ReplayCall(ctx context.Context, from, to eth.Address, data []byte, blockNumber uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reverts[blockNumber]
}

func arguments(typeNames ...string) abi.Arguments {
	out := make(abi.Arguments, 0, len(typeNames))
	for _, t := range typeNames {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		out = append(out, abi.Argument{Type: typ})
	}
	return out
}
