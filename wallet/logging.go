package wallet

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("wallet", "github.com/graphprotocol/metatx-relay/wallet")
