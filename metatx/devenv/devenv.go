package devenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/eth-go/rpc"
	"github.com/streamingfast/logging"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var zlog, _ = logging.PackageLogger("devenv", "github.com/graphprotocol/metatx-relay/metatx/devenv")

// Env is a running Anvil chain with TestContract deployed
type Env struct {
	ctx            context.Context
	cancel         context.CancelFunc
	anvilContainer testcontainers.Container

	RPCURL          string
	ChainID         uint64
	ContractAddress eth.Address

	// Deployer deployed TestContract, Relayer pays for relayed calls and User
	// signs meta-transactions. All are funded with 10 ETH.
	Deployer Account
	Relayer  Account
	User     Account
}

var (
	globalEnv     *Env
	globalEnvOnce sync.Once
	globalEnvErr  error
)

// Start starts the development environment (singleton)
// Returns the existing environment if already started
func Start(ctx context.Context, opts ...Option) (*Env, error) {
	globalEnvOnce.Do(func() {
		globalEnv, globalEnvErr = start(ctx, opts...)
	})
	return globalEnv, globalEnvErr
}

// Get returns the current environment or nil if not started
func Get() *Env {
	return globalEnv
}

// Shutdown shuts down the development environment
func Shutdown() {
	if globalEnv != nil {
		globalEnv.cleanup()
		globalEnv = nil
		globalEnvOnce = sync.Once{}
	}
}

func (env *Env) cleanup() {
	if env.anvilContainer != nil {
		if err := env.anvilContainer.Terminate(context.Background()); err != nil {
			zlog.Warn("terminating anvil container", zap.Error(err))
		}
	}
	env.cancel()
}

// RelayConfig returns a relay configuration targeting the deployed contract
func (env *Env) RelayConfig() *relay.Config {
	config := relay.DefaultConfig()
	config.ContractAddress = env.ContractAddress
	config.ABIPath = ArtifactPath()
	return config
}

// Connect opens a relay session against the devenv chain
func (env *Env) Connect(ctx context.Context) (*relay.Session, error) {
	return relay.Connect(ctx, relay.NewRPCBackend(env.RPCURL), env.RelayConfig(), zlog)
}

func start(ctx context.Context, opts ...Option) (*Env, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if os.Getenv("FORCE_CONTRACTS_BUILD") == "true" {
		config.ForceBuild = true
	}

	config.Reporter.ReportProgress("Ensuring contract artifact")
	if err := ensureContractArtifacts(config.ForceBuild); err != nil {
		return nil, fmt.Errorf("ensuring contract artifacts: %w", err)
	}

	artifact, err := loadContractArtifact(ArtifactPath())
	if err != nil {
		return nil, err
	}

	// The environment context only bounds start-up and the container lifetime
	envCtx, cancel := context.WithCancel(context.Background())
	startCtx, startCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer startCancel()

	fail := func(container testcontainers.Container, err error) (*Env, error) {
		if container != nil {
			container.Terminate(context.Background())
		}
		cancel()
		return nil, err
	}

	anvilCmd := fmt.Sprintf("anvil --host 0.0.0.0 --port 8545 --chain-id %d", config.ChainID)
	if config.BlockTime > 0 {
		anvilCmd += fmt.Sprintf(" --block-time %d", config.BlockTime)
	}

	config.Reporter.ReportProgress("Starting Anvil")
	zlog.Info("starting anvil container", zap.String("cmd", anvilCmd))
	anvilContainer, err := testcontainers.GenericContainer(startCtx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "ghcr.io/foundry-rs/foundry:latest",
			Cmd:          []string{anvilCmd},
			ExposedPorts: []string{"8545/tcp"},
			WaitingFor: wait.ForListeningPort("8545/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fail(nil, fmt.Errorf("starting anvil container: %w", err))
	}

	mappedPort, err := anvilContainer.MappedPort(startCtx, "8545/tcp")
	if err != nil {
		return fail(anvilContainer, fmt.Errorf("getting mapped port: %w", err))
	}

	host, err := anvilContainer.Host(startCtx)
	if err != nil {
		return fail(anvilContainer, fmt.Errorf("getting host: %w", err))
	}

	rpcURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	rpcClient := rpc.NewClient(rpcURL)
	zlog.Info("anvil RPC endpoint ready", zap.String("rpc_url", rpcURL))

	chainID, err := waitForChainID(startCtx, rpcClient)
	if err != nil {
		return fail(anvilContainer, err)
	}

	devAccounts, err := rpc.Do[[]string](rpcClient, startCtx, "eth_accounts", nil)
	if err != nil || len(devAccounts) == 0 {
		return fail(anvilContainer, fmt.Errorf("getting dev accounts: %w", err))
	}
	devAccount := eth.MustNewAddress(devAccounts[0])

	config.Reporter.ReportProgress("Funding accounts")
	accounts, err := newFundedAccounts(startCtx, rpcClient, devAccount, "deployer", "relayer", "user")
	if err != nil {
		return fail(anvilContainer, err)
	}

	config.Reporter.ReportProgress("Deploying TestContract")
	contractAddress, err := deployContract(startCtx, rpcClient, accounts[0].PrivateKey, chainID, artifact)
	if err != nil {
		return fail(anvilContainer, fmt.Errorf("deploying %s: %w", testContractName, err))
	}
	zlog.Info("contract deployed", zap.String("name", testContractName), zap.Stringer("address", contractAddress))

	env := &Env{
		ctx:             envCtx,
		cancel:          cancel,
		anvilContainer:  anvilContainer,
		RPCURL:          rpcURL,
		ChainID:         chainID,
		ContractAddress: contractAddress,
		Deployer:        accounts[0],
		Relayer:         accounts[1],
		User:            accounts[2],
	}

	return env, nil
}

// PrintInfo writes the environment endpoints and accounts to w
func (env *Env) PrintInfo(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "============================================================\n")
	fmt.Fprintf(w, "Meta-transaction development environment ready\n")
	fmt.Fprintf(w, "============================================================\n")
	fmt.Fprintf(w, "  RPC URL: %s\n", env.RPCURL)
	fmt.Fprintf(w, "  Chain ID: %d\n", env.ChainID)
	fmt.Fprintf(w, "  TestContract: %s\n", env.ContractAddress.Pretty())
	fmt.Fprintf(w, "  ABI artifact: %s\n", ArtifactPath())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "ACCOUNTS (10 ETH each):\n")
	for _, account := range []Account{env.Deployer, env.Relayer, env.User} {
		fmt.Fprintf(w, "  %-10s %s (key %s)\n", account.Name+":", account.Address.Pretty(), account.PrivateKeyHex)
	}
	fmt.Fprintf(w, "============================================================\n")
}
