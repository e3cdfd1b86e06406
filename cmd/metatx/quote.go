package main

import (
	"errors"
	"fmt"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/graphprotocol/metatx-relay/wallet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/cli"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/logging"
)

var quoteLog, _ = logging.PackageLogger("quote", "github.com/graphprotocol/metatx-relay/cmd/metatx@quote")

var quoteGetCmd = Command(
	runQuoteGet,
	"get",
	"Print the current quote and its owner",
	Flags(func(flags *pflag.FlagSet) {
		addSessionFlags(flags)
	}),
)

var quoteSetCmd = Command(
	runQuoteSet,
	"set <value>",
	"Sign and relay a setQuote meta-transaction",
	Description(`
		Reads the signer's current meta-transaction nonce, builds the EIP-712
		MetaTransaction for setQuote(<value>), has it signed and relays it
		through executeMetaTransaction, the relayer account paying for gas.

		The typed data is signed either with a local key (--signer-key) or by
		a wallet exposing eth_signTypedData_v4 over JSON-RPC (--wallet-rpc).
	`),
	Flags(func(flags *pflag.FlagSet) {
		addSessionFlags(flags)
		flags.String("relayer-key", "", "Private key of the account paying gas (hex, required)")
		flags.String("signer-key", "", "Private key signing the meta-transaction (hex)")
		flags.String("wallet-rpc", "", "JSON-RPC endpoint of a wallet signing the meta-transaction")
		flags.String("from", "", "Wallet account to sign with, defaults to the wallet's first account (only with --wallet-rpc)")
	}),
)

func runQuoteGet(cmd *cobra.Command, args []string) error {
	session, err := connectSession(cmd, mustSessionConfig(cmd), quoteLog)
	if err != nil {
		return fmt.Errorf("connecting to contract: %w", err)
	}

	state, err := session.State(cmd.Context())
	if errors.Is(err, metatx.ErrEmptyState) {
		fmt.Println("No quote set yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading quote: %w", err)
	}

	fmt.Printf("Quote: %s\n", state.Value)
	fmt.Printf("Owner: %s\n", state.Owner.Pretty())
	return nil
}

func runQuoteSet(cmd *cobra.Command, args []string) error {
	cli.Ensure(len(args) == 1, "<value> argument is required")
	value := args[0]

	signerKeyHex := sflags.MustGetString(cmd, "signer-key")
	walletRPC := sflags.MustGetString(cmd, "wallet-rpc")
	cli.Ensure((signerKeyHex == "") != (walletRPC == ""), "exactly one of <signer-key> or <wallet-rpc> is required")

	ctx := cmd.Context()
	session, err := connectSession(cmd, mustSessionConfig(cmd), quoteLog)
	if err != nil {
		return fmt.Errorf("connecting to contract: %w", err)
	}

	var signer relay.TypedDataSigner
	var from eth.Address
	if signerKeyHex != "" {
		local, err := wallet.NewLocalFromHex(signerKeyHex, session.ChainID())
		cli.NoError(err, "invalid <signer-key> %q", signerKeyHex)
		signer, from = local, local.Address()
	} else {
		remote, err := wallet.DialRemote(ctx, walletRPC)
		if err != nil {
			return fmt.Errorf("connecting to wallet: %w", err)
		}
		defer remote.Close()

		from, err = selectWalletAccount(cmd, remote)
		if err != nil {
			return err
		}
		signer = remote
	}

	account := mustRelayAccount(cmd, session)
	submitter := relay.NewSubmitter(session, account, relay.WithLogger(quoteLog))
	pipeline := relay.NewPipeline(session, signer, submitter)

	fmt.Printf("Signing setQuote(%q) as %s...\n", value, from.Pretty())
	submission, err := pipeline.SetQuote(ctx, from, value)
	if err != nil {
		if metatx.IsNonceMismatch(err) {
			return fmt.Errorf("signature rejected, the nonce may have changed since signing, sign again: %w", err)
		}
		return err
	}

	for event := range submission.Events() {
		switch event.State {
		case relay.SubmissionSubmitted:
			limit, price := submission.Gas()
			fmt.Printf("Submitted %s (gas limit %d, max cost %s wei)\n", event.Hash, limit, relay.GasCost(limit, price))
		case relay.SubmissionConfirmed:
			fmt.Printf("Confirmed %s\n", event.Receipt.TransactionHash)
			if event.RefreshErr != nil {
				fmt.Printf("Unable to read the updated quote: %s\n", event.RefreshErr)
			} else if event.Refreshed != nil {
				fmt.Printf("Quote: %s\n", event.Refreshed.Value)
				fmt.Printf("Owner: %s\n", event.Refreshed.Owner.Pretty())
			}
		case relay.SubmissionFailed:
			if metatx.IsNonceMismatch(event.Err) {
				return fmt.Errorf("relay failed, the nonce may have changed since signing, sign again: %w", event.Err)
			}
			return fmt.Errorf("relay failed: %w", event.Err)
		}
	}

	return nil
}

func selectWalletAccount(cmd *cobra.Command, remote *wallet.Remote) (eth.Address, error) {
	accounts, err := remote.RequestAccounts(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("requesting wallet accounts: %w", err)
	}

	fromHex := sflags.MustGetString(cmd, "from")
	if fromHex == "" {
		return accounts[0], nil
	}

	from, err := eth.NewAddress(fromHex)
	cli.NoError(err, "invalid <from> %q", fromHex)
	return from, nil
}
