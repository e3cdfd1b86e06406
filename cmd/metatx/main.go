package main

import (
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var zlog, _ = logging.PackageLogger("metatx", "github.com/graphprotocol/metatx-relay/cmd/metatx")
var version = "dev"

func init() {
	logging.InstantiateLoggers(logging.WithDefaultLevel(zap.ErrorLevel))
}

func main() {
	Run(
		"metatx",
		"EIP-712 meta-transaction signing and relaying CLI",
		ConfigureVersion(version),
		OnCommandErrorLogAndExit(zlog),

		devenvCmd,
		relayerCmd,

		Group(
			"quote",
			"Read and update the TestContract quote",
			quoteGetCmd,
			quoteSetCmd,
		),

		Group(
			"accounts",
			"Wallet account commands",
			accountsWatchCmd,
		),
	)
}
