package integration

import (
	"context"
	"testing"
	"time"

	"github.com/graphprotocol/metatx-relay/metatx/devenv"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/stretchr/testify/require"
)

type testSetup struct {
	Env       *devenv.Env
	Session   *relay.Session
	Submitter *relay.Submitter
}

func setup(t *testing.T) *testSetup {
	t.Helper()

	env := devenv.Get()
	require.NotNil(t, env, "development environment not started")

	session, err := env.Connect(context.Background())
	require.NoError(t, err)

	submitter := relay.NewSubmitter(session, env.Relayer.RelayAccount(env.ChainID), relay.WithLogger(zlog))

	return &testSetup{Env: env, Session: session, Submitter: submitter}
}

// waitTerminal drains the submission's events and returns them, failing
// when the submission does not finish in time
func waitTerminal(t *testing.T, submission *relay.Submission) []relay.Event {
	t.Helper()

	var events []relay.Event
	timeout := time.After(60 * time.Second)
	for {
		select {
		case event, ok := <-submission.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatalf("submission %s did not terminate, got %d events", submission.ID, len(events))
		}
	}
}
