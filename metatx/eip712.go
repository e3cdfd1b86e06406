package metatx

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/streamingfast/eth-go"
)

const (
	// DomainType is the reserved EIP-712 name of the domain struct
	DomainType = "EIP712Domain"

	// PrimaryType is the struct the user signs
	PrimaryType = "MetaTransaction"
)

// Field order and type tags are part of the signed digest and must match the
// verifying contract exactly.
var (
	DomainFields = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "salt", Type: "bytes32"},
		{Name: "verifyingContract", Type: "address"},
	}

	MetaTransactionFields = []apitypes.Type{
		{Name: "nonce", Type: "uint256"},
		{Name: "from", Type: "address"},
		{Name: "functionSignature", Type: "bytes"},
	}
)

// EIP712 type hashes (pre-computed)
var (
	eip712DomainTypeHash    = keccak256([]byte(encodeType(DomainType, DomainFields)))
	metaTransactionTypeHash = keccak256([]byte(encodeType(PrimaryType, MetaTransactionFields)))
)

// Schema returns a fresh copy of the type definitions shared with wallets
func Schema() apitypes.Types {
	return apitypes.Types{
		DomainType:  append([]apitypes.Type(nil), DomainFields...),
		PrimaryType: append([]apitypes.Type(nil), MetaTransactionFields...),
	}
}

// encodeType renders a struct type as "Name(type1 name1,type2 name2)"
func encodeType(name string, fields []apitypes.Type) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field.Type+" "+field.Name)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// EIP712TypeHash returns the type hash for MetaTransaction
func (m *MetaTransaction) EIP712TypeHash() eth.Hash {
	return metaTransactionTypeHash
}

// EIP712EncodeData returns the ABI-encoded data for MetaTransaction
func (m *MetaTransaction) EIP712EncodeData() []byte {
	encoded := make([]byte, 0, 32*3)
	encoded = append(encoded, encodeUint256(m.Nonce)...)            // uint256
	encoded = append(encoded, padLeft(m.From[:], 32)...)            // address
	encoded = append(encoded, keccak256(m.FunctionSignature)[:]...) // keccak256(bytes)
	return encoded
}

// HashTypedData computes the EIP-712 hash for signing
// Returns: keccak256("\x19\x01" || domainSeparator || structHash)
func HashTypedData(domain *Domain, message *MetaTransaction) eth.Hash {
	structHash := hashStruct(message)
	domainSep := domain.Separator()

	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSep[:]...)
	data = append(data, structHash[:]...)

	return keccak256(data)
}

// hashStruct computes keccak256(typeHash || encodeData)
func hashStruct(message *MetaTransaction) eth.Hash {
	typeHash := message.EIP712TypeHash()
	encodedData := message.EIP712EncodeData()

	data := make([]byte, 0, 32+len(encodedData))
	data = append(data, typeHash[:]...)
	data = append(data, encodedData...)

	return keccak256(data)
}

// Helper functions

func keccak256(data []byte) eth.Hash {
	return eth.Keccak256(data)
}

func padLeft(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	result := make([]byte, size)
	copy(result[size-len(b):], b)
	return result
}

func encodeUint256(v *big.Int) []byte {
	result := make([]byte, 32)
	if v != nil {
		v.FillBytes(result)
	}
	return result
}
