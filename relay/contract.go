package relay

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/streamingfast/eth-go"
)

//go:embed abi/TestContract.json
var testContractArtifact []byte

// Contract is a deployed meta-transaction contract: its address and ABI
type Contract struct {
	Address eth.Address
	ABI     *eth.ABI
}

// NewContract binds address to the ABI found in the Foundry artifact at
// abiPath, or to the embedded TestContract ABI when abiPath is empty
func NewContract(address eth.Address, abiPath string) (*Contract, error) {
	abi, err := loadABI(abiPath)
	if err != nil {
		return nil, err
	}

	for _, method := range []string{"getNonce", "executeMetaTransaction"} {
		if abi.FindFunctionByName(method) == nil {
			return nil, fmt.Errorf("%s function not found in ABI", method)
		}
	}

	return &Contract{Address: address, ABI: abi}, nil
}

func loadABI(abiPath string) (*eth.ABI, error) {
	if abiPath == "" {
		return eth.ParseABIFromBytes(testContractArtifact)
	}

	if _, err := os.Stat(abiPath); err != nil {
		return nil, fmt.Errorf("reading ABI artifact: %w", err)
	}
	abi, err := eth.ParseABI(abiPath)
	if err != nil {
		return nil, fmt.Errorf("parsing ABI artifact %q: %w", abiPath, err)
	}
	return abi, nil
}

// CallData encodes a contract method call with arguments and returns the calldata
func (c *Contract) CallData(method string, args ...interface{}) ([]byte, error) {
	fn := c.ABI.FindFunctionByName(method)
	if fn == nil {
		return nil, fmt.Errorf("%s function not found in ABI", method)
	}

	data, err := fn.NewCall(args...).Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding %s call: %w", method, err)
	}

	return data, nil
}
