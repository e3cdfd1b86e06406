package devenv

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/eth-go/rpc"
	"github.com/streamingfast/eth-go/signer/native"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const testContractName = "TestContract"

// contractArtifact is the part of a Foundry build artifact needed to deploy
type contractArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode struct {
		Object string `json:"object"`
	} `json:"bytecode"`
}

func loadContractArtifact(path string) (*contractArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact file: %w", err)
	}

	var artifact contractArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing artifact: %w", err)
	}
	if artifact.Bytecode.Object == "" {
		return nil, fmt.Errorf("artifact %s has no bytecode", path)
	}

	return &artifact, nil
}

// deployContract deploys the artifact's bytecode, the contract takes no
// constructor arguments
func deployContract(ctx context.Context, rpcClient *rpc.Client, key *eth.PrivateKey, chainID uint64, artifact *contractArtifact) (eth.Address, error) {
	bytecode, err := hexutil.Decode(artifact.Bytecode.Object)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode: %w", err)
	}

	deployerAddr := key.PublicKey().Address()
	zlog.Debug("deploying contract", zap.Stringer("deployer", deployerAddr), zap.Uint64("chain_id", chainID))

	nonce, err := rpcClient.Nonce(ctx, deployerAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	gasPrice, err := rpcClient.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	signer, err := native.NewPrivateKeySigner(zlog, new(big.Int).SetUint64(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	signedTx, err := signer.SignTransaction(nonce, nil, big.NewInt(0), 3_000_000, gasPrice, bytecode)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	txHash, err := rpcClient.SendRawTransaction(ctx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}
	zlog.Debug("deployment transaction sent", zap.String("tx_hash", txHash))

	if err := waitForReceipt(ctx, rpcClient, txHash); err != nil {
		return nil, fmt.Errorf("waiting for receipt: %w", err)
	}

	receipt, err := rpcClient.TransactionReceipt(ctx, eth.MustNewHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if receipt == nil || receipt.ContractAddress == nil {
		return nil, fmt.Errorf("contract address not in receipt of %s", txHash)
	}

	return *receipt.ContractAddress, nil
}

// ensureContractArtifacts builds the contract artifact in a Foundry container
// unless it already exists
func ensureContractArtifacts(forceBuild bool) error {
	artifactPath := ArtifactPath()

	if !forceBuild {
		if _, err := os.Stat(artifactPath); err == nil {
			zlog.Info("contract artifact found, skipping build", zap.String("path", artifactPath))
			return nil
		}
	}

	zlog.Info("building contract artifact")

	artifactsDir := filepath.Dir(artifactPath)
	if err := os.MkdirAll(artifactsDir, 0755); err != nil {
		return fmt.Errorf("creating artifacts directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:       getBuildDir(),
			Dockerfile:    "Dockerfile",
			PrintBuildLog: true,
		},
		Mounts: testcontainers.ContainerMounts{
			testcontainers.BindMount(artifactsDir, "/output"),
		},
		WaitingFor: wait.ForLog("Build complete!").
			WithStartupTimeout(5 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("starting build container: %w", err)
	}
	defer container.Terminate(ctx)

	for {
		state, err := container.State(ctx)
		if err != nil {
			return fmt.Errorf("getting container state: %w", err)
		}

		if !state.Running {
			if state.ExitCode != 0 {
				return fmt.Errorf("build container exited with code %d", state.ExitCode)
			}
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for build container")
		case <-time.After(1 * time.Second):
		}
	}

	if _, err := os.Stat(artifactPath); err != nil {
		return fmt.Errorf("artifact not found after build: %w", err)
	}

	zlog.Info("contract artifact built", zap.String("path", artifactPath))
	return nil
}

// ArtifactPath is where the TestContract Foundry artifact is built to, it
// can be handed to relay.Config.ABIPath
func ArtifactPath() string {
	return filepath.Join(filepath.Dir(getDevenvDir()), "testdata", "contracts", testContractName+".json")
}

func getDevenvDir() string {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("failed to get current file path")
	}
	return filepath.Dir(currentFile)
}

func getBuildDir() string {
	return filepath.Join(getDevenvDir(), "build")
}
