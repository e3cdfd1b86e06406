package devenv

import (
	"context"
	"fmt"
	"time"

	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/eth-go/rpc"
)

// waitForReceipt waits for a transaction receipt, failing on a reverted
// transaction
func waitForReceipt(ctx context.Context, rpcClient *rpc.Client, txHash string) error {
	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	hash := eth.MustNewHash(txHash)
	for {
		select {
		case <-timeout:
			return fmt.Errorf("timeout waiting for transaction %s", txHash)
		case <-ticker.C:
			receipt, err := rpcClient.TransactionReceipt(ctx, hash)
			if err != nil || receipt == nil {
				continue
			}
			if receipt.Status != nil && uint64(*receipt.Status) == 0 {
				return fmt.Errorf("transaction failed: %s", txHash)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// waitForChainID polls the node until it answers eth_chainId
func waitForChainID(ctx context.Context, rpcClient *rpc.Client) (uint64, error) {
	var lastErr error
	for i := 0; i < 20; i++ {
		chainID, err := rpcClient.ChainID(ctx)
		if err == nil && chainID != nil && chainID.Sign() > 0 {
			return chainID.Uint64(), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return 0, fmt.Errorf("node did not report a valid chain id: %w", lastErr)
}
