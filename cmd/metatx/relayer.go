package main

import (
	"fmt"
	"time"

	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/graphprotocol/metatx-relay/relayer"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/logging"
)

var relayerLog, _ = logging.PackageLogger("relayer", "github.com/graphprotocol/metatx-relay/cmd/metatx@relayer")

var relayerCmd = Command(
	runRelayer,
	"relayer",
	"Start the meta-transaction relayer HTTP server",
	Description(`
		Starts the relayer which accepts signed meta-transactions over HTTP and
		submits them to the contract's executeMetaTransaction, paying gas from
		the relayer account.

		The server exposes:
		- GET  /v1/domain: EIP-712 domain clients must sign against
		- GET  /v1/nonce/:address: current meta-transaction nonce of an account
		- GET  /v1/state: current quote and owner
		- POST /v1/relay: relay a signed meta-transaction
		- GET  /v1/relay/:id: status of a relayed meta-transaction
	`),
	Flags(func(flags *pflag.FlagSet) {
		addSessionFlags(flags)
		flags.String("listen-addr", relayer.DefaultConfig().ListenAddr, "HTTP server listen address")
		flags.String("relayer-key", "", "Private key of the account paying gas (hex, required)")
		flags.Duration("retention", relayer.DefaultConfig().Retention, "How long finished submissions stay queryable")
		flags.Bool("verify-signature", true, "Recover the signer locally before relaying, --verify-signature=false leaves the check to the contract")
	}),
)

func runRelayer(cmd *cobra.Command, args []string) error {
	config := mustSessionConfig(cmd)
	config.VerifySignature = sflags.MustGetBool(cmd, "verify-signature")

	session, err := connectSession(cmd, config, relayerLog)
	if err != nil {
		return fmt.Errorf("connecting to contract: %w", err)
	}

	account := mustRelayAccount(cmd, session)
	submitter := relay.NewSubmitter(session, account, relay.WithLogger(relayerLog))

	relayerConfig := &relayer.Config{
		ListenAddr: sflags.MustGetString(cmd, "listen-addr"),
		Retention:  sflags.MustGetDuration(cmd, "retention"),
	}

	app := NewApplication(cmd.Context())

	server := relayer.New(relayerConfig, session, submitter, relayerLog)
	app.SuperviseAndStart(server)

	return app.WaitForTermination(relayerLog, 0*time.Second, 30*time.Second)
}
