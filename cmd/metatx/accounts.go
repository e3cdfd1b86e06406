package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphprotocol/metatx-relay/wallet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/cli"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
)

var accountsWatchCmd = Command(
	runAccountsWatch,
	"watch",
	"Print the wallet's active account and every change to it",
	Description(`
		Connects to a wallet over JSON-RPC, requests access to its accounts and
		then polls eth_accounts, printing the active account whenever it changes.

		Press Ctrl+C to stop.
	`),
	Flags(func(flags *pflag.FlagSet) {
		flags.String("wallet-rpc", "", "JSON-RPC endpoint of the wallet (required)")
		flags.Duration("interval", time.Second, "Account polling interval")
	}),
)

func runAccountsWatch(cmd *cobra.Command, args []string) error {
	walletRPC := sflags.MustGetString(cmd, "wallet-rpc")
	cli.Ensure(walletRPC != "", "<wallet-rpc> is required")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := wallet.DialRemote(ctx, walletRPC)
	if err != nil {
		return fmt.Errorf("connecting to wallet: %w", err)
	}
	defer remote.Close()

	if _, err := remote.RequestAccounts(ctx); err != nil {
		return fmt.Errorf("requesting wallet accounts: %w", err)
	}

	watcher := wallet.NewAccountWatcher(remote, sflags.MustGetDuration(cmd, "interval"))
	for change := range watcher.Changes(ctx) {
		switch {
		case change.Current == nil:
			fmt.Println("No account connected")
		case change.Previous == nil:
			fmt.Printf("Active account: %s\n", change.Current.Pretty())
		default:
			fmt.Printf("Account changed: %s -> %s\n", change.Previous.Pretty(), change.Current.Pretty())
		}
	}

	return nil
}
