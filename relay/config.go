package relay

import (
	"time"

	"github.com/streamingfast/eth-go"
)

// Config holds the process-wide settings of a relay session. It is read once
// at start-up.
type Config struct {
	// ContractAddress is the meta-transaction contract, also the domain's
	// verifying contract
	ContractAddress eth.Address
	// DomainName is the EIP-712 domain name (default: "TestContract")
	DomainName string
	// DomainVersion is the EIP-712 domain version (default: "1")
	DomainVersion string
	// ABIPath is a Foundry artifact holding the contract ABI, the embedded
	// TestContract ABI is used when empty
	ABIPath string
	// PollInterval is the receipt polling period (default: 500ms)
	PollInterval time.Duration
	// VerifySignature recovers the signer locally before relaying (default: true)
	VerifySignature bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DomainName:      "TestContract",
		DomainVersion:   "1",
		PollInterval:    500 * time.Millisecond,
		VerifySignature: true,
	}
}
