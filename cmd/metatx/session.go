package main

import (
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/graphprotocol/metatx-relay/wallet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

func addSessionFlags(flags *pflag.FlagSet) {
	defaults := relay.DefaultConfig()

	flags.String("rpc-endpoint", "http://localhost:8545", "Ethereum JSON-RPC endpoint")
	flags.String("contract-address", "", "Meta-transaction contract address, also the EIP-712 verifying contract (required)")
	flags.String("domain-name", defaults.DomainName, "EIP-712 domain name")
	flags.String("domain-version", defaults.DomainVersion, "EIP-712 domain version")
	flags.String("abi-path", "", "Foundry artifact holding the contract ABI, the embedded TestContract ABI is used when empty")
	flags.Duration("poll-interval", defaults.PollInterval, "Transaction receipt polling interval")
}

func mustSessionConfig(cmd *cobra.Command) *relay.Config {
	contractHex := sflags.MustGetString(cmd, "contract-address")
	cli.Ensure(contractHex != "", "<contract-address> is required")
	contractAddr, err := eth.NewAddress(contractHex)
	cli.NoError(err, "invalid <contract-address> %q", contractHex)

	config := relay.DefaultConfig()
	config.ContractAddress = contractAddr
	config.DomainName = sflags.MustGetString(cmd, "domain-name")
	config.DomainVersion = sflags.MustGetString(cmd, "domain-version")
	config.ABIPath = sflags.MustGetString(cmd, "abi-path")
	config.PollInterval = sflags.MustGetDuration(cmd, "poll-interval")

	return config
}

func connectSession(cmd *cobra.Command, config *relay.Config, logger *zap.Logger) (*relay.Session, error) {
	backend := relay.NewRPCBackend(sflags.MustGetString(cmd, "rpc-endpoint"))
	return relay.Connect(cmd.Context(), backend, config, logger)
}

func mustRelayAccount(cmd *cobra.Command, session *relay.Session) *relay.Account {
	relayerKeyHex := sflags.MustGetString(cmd, "relayer-key")
	cli.Ensure(relayerKeyHex != "", "<relayer-key> is required")
	relayerKey, err := wallet.ParsePrivateKey(relayerKeyHex)
	cli.NoError(err, "invalid <relayer-key> %q", relayerKeyHex)

	return relay.NewAccount(relayerKey, session.ChainID())
}
