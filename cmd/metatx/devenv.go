package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/graphprotocol/metatx-relay/metatx/devenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
)

var devenvCmd = Command(
	runDevenv,
	"devenv",
	"Start a local Anvil chain with TestContract deployed",
	Description(`
		Starts a local Anvil node, builds TestContract when its artifact is
		missing and deploys it. Three funded accounts are created: a deployer,
		a relayer paying gas for relayed calls and a user signing
		meta-transactions.

		Press Ctrl+C to shut down the environment.
	`),
	Flags(func(flags *pflag.FlagSet) {
		flags.Uint64("chain-id", devenv.DefaultConfig().ChainID, "Chain ID for the Anvil network, also the EIP-712 domain salt")
		flags.Uint64("block-time", 0, "Anvil block interval in seconds, 0 mines a block per transaction")
		flags.Bool("force-build", false, "Rebuild the contract artifact even when present")
	}),
)

type consoleReporter struct{}

func (consoleReporter) ReportProgress(message string) {
	fmt.Println(message)
}

func runDevenv(cmd *cobra.Command, args []string) error {
	chainID := sflags.MustGetUint64(cmd, "chain-id")
	blockTime := sflags.MustGetUint64(cmd, "block-time")
	forceBuild := sflags.MustGetBool(cmd, "force-build")

	fmt.Println("Checking Docker availability...")
	if err := checkDocker(); err != nil {
		return fmt.Errorf("Docker is not available: %w\nPlease ensure Docker is installed and running", err)
	}

	fmt.Printf("\nStarting meta-transaction development environment...\n")
	fmt.Printf("  Chain ID: %d\n", chainID)
	if blockTime > 0 {
		fmt.Printf("  Block time: %ds\n", blockTime)
	}
	fmt.Println()

	env, err := devenv.Start(context.Background(),
		devenv.WithChainID(chainID),
		devenv.WithBlockTime(blockTime),
		devenv.WithForceBuild(forceBuild),
		devenv.WithReporter(consoleReporter{}),
	)
	if err != nil {
		return err
	}

	env.PrintInfo(os.Stdout)
	fmt.Printf("\nRelay with: metatx relayer --contract-address %s --relayer-key %s --rpc-endpoint %s\n",
		env.ContractAddress.Pretty(), env.Relayer.PrivateKeyHex, env.RPCURL)
	fmt.Println("\nPress Ctrl+C to shut down the environment")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down development environment...")
	devenv.Shutdown()
	fmt.Println("Shutdown complete")

	return nil
}

func checkDocker() error {
	cmd := exec.Command("docker", "info")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}
