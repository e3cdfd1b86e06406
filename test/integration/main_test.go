package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/graphprotocol/metatx-relay/metatx/devenv"
)

// The suite needs Docker, it only runs when METATX_INTEGRATION is set
func TestMain(m *testing.M) {
	if os.Getenv("METATX_INTEGRATION") == "" {
		fmt.Fprintln(os.Stderr, "skipping integration tests, set METATX_INTEGRATION=1 to run them")
		os.Exit(0)
	}

	ctx := context.Background()
	_, err := devenv.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start development environment: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	devenv.Shutdown()
	os.Exit(code)
}
