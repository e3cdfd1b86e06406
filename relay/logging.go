package relay

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("relay", "github.com/graphprotocol/metatx-relay/relay")
