package metatx

import (
	"math/big"

	"github.com/streamingfast/eth-go"
)

// Domain is the EIP-712 domain of a meta-transaction contract. The chain is
// bound through Salt instead of a chainId field.
type Domain struct {
	Name              string
	Version           string
	Salt              [32]byte
	VerifyingContract eth.Address
}

// NewDomain creates a domain whose salt encodes chainID
func NewDomain(name, version string, chainID uint64, verifyingContract eth.Address) *Domain {
	return &Domain{
		Name:              name,
		Version:           version,
		Salt:              SaltFromChainID(chainID),
		VerifyingContract: verifyingContract,
	}
}

// SaltFromChainID returns the chain id as a big-endian 32-byte word
func SaltFromChainID(chainID uint64) (salt [32]byte) {
	new(big.Int).SetUint64(chainID).FillBytes(salt[:])
	return salt
}

// ChainID decodes the chain id carried by the salt
func (d *Domain) ChainID() *big.Int {
	return new(big.Int).SetBytes(d.Salt[:])
}

// Separator computes the EIP-712 domain separator hash
func (d *Domain) Separator() eth.Hash {
	encoded := make([]byte, 0, 32*5)
	encoded = append(encoded, eip712DomainTypeHash[:]...)
	encoded = append(encoded, keccak256([]byte(d.Name))[:]...)
	encoded = append(encoded, keccak256([]byte(d.Version))[:]...)
	encoded = append(encoded, d.Salt[:]...)
	encoded = append(encoded, padLeft(d.VerifyingContract[:], 32)...)

	return keccak256(encoded)
}
