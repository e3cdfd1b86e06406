package relay

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

// State is the name/value pair exposed by the contract
type State struct {
	Value string      `json:"value"`
	Owner eth.Address `json:"owner"`
}

// getQuote() returns (string currentQuote, address currentOwner)
var getQuoteOutputs = mustArguments("string", "address")

// Session is the connection to a chain and a meta-transaction contract. It is
// created once by the application and handed to every component.
type Session struct {
	backend  Backend
	contract *Contract
	domain   *metatx.Domain
	chainID  *big.Int
	config   *Config
	logger   *zap.Logger
}

// Connect reads the chain id from backend and fixes the domain salt with it.
// The domain does not change for the lifetime of the session.
func Connect(ctx context.Context, backend Backend, config *Config, logger *zap.Logger) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zlog
	}
	if len(config.ContractAddress) == 0 {
		return nil, fmt.Errorf("contract address is required")
	}

	contract, err := NewContract(config.ContractAddress, config.ABIPath)
	if err != nil {
		return nil, fmt.Errorf("loading contract: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain id: %w", err)
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}

	domain := metatx.NewDomain(config.DomainName, config.DomainVersion, chainID.Uint64(), config.ContractAddress)

	logger.Info("relay session connected",
		zap.Stringer("chain_id", chainID),
		zap.Stringer("contract", config.ContractAddress),
		zap.String("domain_name", domain.Name),
		zap.String("domain_version", domain.Version),
	)

	return &Session{
		backend:  backend,
		contract: contract,
		domain:   domain,
		chainID:  chainID,
		config:   config,
		logger:   logger,
	}, nil
}

// Domain returns a copy of the session's EIP-712 domain
func (s *Session) Domain() *metatx.Domain {
	domain := *s.domain
	return &domain
}

func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *Session) Contract() *Contract {
	return s.contract
}

func (s *Session) Backend() Backend {
	return s.backend
}

func (s *Session) Config() *Config {
	return s.config
}

// Nonce reads the current replay counter of account from the contract. It is
// never cached, read it right before building a message.
func (s *Session) Nonce(ctx context.Context, account eth.Address) (*big.Int, error) {
	result, err := s.call(ctx, "getNonce", account)
	if err != nil {
		return nil, err
	}

	// Result is uint256 (32 bytes)
	if len(result) != 32 {
		return nil, fmt.Errorf("unexpected getNonce result length: %d", len(result))
	}

	return new(big.Int).SetBytes(result), nil
}

// State reads the contract's current quote and owner. It returns
// metatx.ErrEmptyState when no quote has been set yet.
func (s *Session) State(ctx context.Context) (*State, error) {
	result, err := s.call(ctx, "getQuote")
	if err != nil {
		return nil, err
	}

	values, err := getQuoteOutputs.Unpack(result)
	if err != nil {
		return nil, fmt.Errorf("decoding getQuote result: %w", err)
	}

	quote, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected getQuote value type %T", values[0])
	}
	owner, ok := values[1].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected getQuote owner type %T", values[1])
	}

	if quote == "" {
		return nil, metatx.ErrEmptyState
	}

	return &State{Value: quote, Owner: eth.Address(owner.Bytes())}, nil
}

// EncodeSetQuote returns the calldata of setQuote(value)
func (s *Session) EncodeSetQuote(value string) ([]byte, error) {
	return s.contract.CallData("setQuote", value)
}

func (s *Session) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := s.contract.CallData(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := s.backend.CallContract(ctx, s.contract.Address, data)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	return result, nil
}

func mustArguments(types ...string) abi.Arguments {
	arguments := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("invalid ABI type %q: %v", t, err))
		}
		arguments = append(arguments, abi.Argument{Type: typ})
	}
	return arguments
}
