package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/graphprotocol/metatx-relay/relay/relaytest"
	"github.com/streamingfast/eth-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *relay.Config {
	config := relay.DefaultConfig()
	config.ContractAddress = relaytest.ContractAddress
	config.PollInterval = 5 * time.Millisecond
	return config
}

func newTestSession(t *testing.T, backend relay.Backend) *relay.Session {
	t.Helper()

	session, err := relay.Connect(context.Background(), backend, testConfig(), zap.NewNop())
	require.NoError(t, err)
	return session
}

func newTestAccount(t *testing.T) *relay.Account {
	t.Helper()

	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)
	return relay.NewAccount(key, relaytest.ChainID)
}

func newTestKey(t *testing.T) *eth.PrivateKey {
	t.Helper()

	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func collectEvents(t *testing.T, submission *relay.Submission) []relay.Event {
	t.Helper()

	var events []relay.Event
	timeout := time.After(5 * time.Second)
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

// signedRequest signs setQuote(value) for key at the contract's current nonce
func signedRequest(t *testing.T, session *relay.Session, key *eth.PrivateKey, value string) *relay.Request {
	t.Helper()

	nonce, err := session.Nonce(context.Background(), key.PublicKey().Address())
	require.NoError(t, err)

	call, err := session.EncodeSetQuote(value)
	require.NoError(t, err)

	request, err := relaytest.SignedRequest(session.Domain(), key, nonce.Uint64(), call)
	require.NoError(t, err)
	return request
}
