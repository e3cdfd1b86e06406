package metatx

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/streamingfast/eth-go"
)

// MetaTransaction is the payload a user signs to have From's call executed by
// a relayer
type MetaTransaction struct {
	Nonce             *big.Int    `json:"nonce"`
	From              eth.Address `json:"from"`
	FunctionSignature []byte      `json:"functionSignature"`
}

// TypedMessage is the full EIP-712 structure handed to a signer. Treat it as
// immutable once built.
type TypedMessage struct {
	Domain      Domain
	Types       apitypes.Types
	PrimaryType string
	Message     MetaTransaction
}

// NewTypedMessage assembles the typed message for calling functionSignature on
// behalf of from. Inputs are copied.
func NewTypedMessage(domain *Domain, nonce *big.Int, from eth.Address, functionSignature []byte) *TypedMessage {
	n := new(big.Int)
	if nonce != nil {
		n.Set(nonce)
	}

	return &TypedMessage{
		Domain: Domain{
			Name:              domain.Name,
			Version:           domain.Version,
			Salt:              domain.Salt,
			VerifyingContract: bytes.Clone(domain.VerifyingContract),
		},
		Types:       Schema(),
		PrimaryType: PrimaryType,
		Message: MetaTransaction{
			Nonce:             n,
			From:              bytes.Clone(from),
			FunctionSignature: bytes.Clone(functionSignature),
		},
	}
}

// Hash returns the EIP-712 digest the signer is expected to sign
func (m *TypedMessage) Hash() eth.Hash {
	return HashTypedData(&m.Domain, &m.Message)
}

// TypedData renders the message in the shape wallets accept for
// eth_signTypedData_v4
func (m *TypedMessage) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types:       m.Types,
		PrimaryType: m.PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              m.Domain.Name,
			Version:           m.Domain.Version,
			Salt:              hexutil.Encode(m.Domain.Salt[:]),
			VerifyingContract: m.Domain.VerifyingContract.Pretty(),
		},
		Message: apitypes.TypedDataMessage{
			"nonce":             m.Message.Nonce.String(),
			"from":              m.Message.From.Pretty(),
			"functionSignature": hexutil.Encode(m.Message.FunctionSignature),
		},
	}
}

// MarshalJSON emits the eth_signTypedData_v4 payload. The domain only carries
// the fields declared in the schema.
func (m *TypedMessage) MarshalJSON() ([]byte, error) {
	typedData := m.TypedData()

	return json.Marshal(struct {
		Types       apitypes.Types            `json:"types"`
		PrimaryType string                    `json:"primaryType"`
		Domain      map[string]interface{}    `json:"domain"`
		Message     apitypes.TypedDataMessage `json:"message"`
	}{
		Types:       typedData.Types,
		PrimaryType: typedData.PrimaryType,
		Domain:      typedData.Domain.Map(),
		Message:     typedData.Message,
	})
}
