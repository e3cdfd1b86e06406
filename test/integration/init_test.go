package integration

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("integration_tests", "github.com/graphprotocol/metatx-relay/test/integration")

func init() {
	logging.InstantiateLoggers()
}
