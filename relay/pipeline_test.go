package relay_test

import (
	"context"
	"testing"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/graphprotocol/metatx-relay/relay/relaytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T, backend relay.Backend, signer relay.TypedDataSigner) (*relay.Pipeline, *relay.Session) {
	t.Helper()

	session := newTestSession(t, backend)
	return relay.NewPipeline(session, signer, relay.NewSubmitter(session, newTestAccount(t))), session
}

func TestPipeline_Sign(t *testing.T) {
	backend := relaytest.NewBackend()
	userKey := newTestKey(t)
	from := userKey.PublicKey().Address()
	backend.SetNonce(from, 5)

	pipeline, session := newTestPipeline(t, backend, &relaytest.KeySigner{Key: userKey})

	call, err := session.EncodeSetQuote("hello")
	require.NoError(t, err)

	message, signature, err := pipeline.Sign(context.Background(), from, call)
	require.NoError(t, err)

	assert.Equal(t, metatx.PrimaryType, message.PrimaryType)
	assert.Equal(t, int64(5), message.Message.Nonce.Int64())
	assert.Equal(t, from, message.Message.From)
	assert.Equal(t, call, message.Message.FunctionSignature)
	assert.Len(t, signature.Bytes(), metatx.SignatureLength)
	assert.Contains(t, []uint8{27, 28}, signature.V)

	estimate, send := backend.Counts()
	assert.Equal(t, 0, estimate)
	assert.Equal(t, 0, send)
}

func TestPipeline_SetQuote(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"wallet v 27/28", nil},
		{"raw recovery bit 0/1", func(raw []byte) []byte { raw[64] -= 27; return raw }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			backend := relaytest.NewBackend()
			userKey := newTestKey(t)
			from := userKey.PublicKey().Address()

			pipeline, session := newTestPipeline(t, backend, &relaytest.KeySigner{Key: userKey, Mutate: test.mutate})

			_, err := pipeline.Refresh(context.Background())
			require.ErrorIs(t, err, metatx.ErrEmptyState)

			submission, err := pipeline.SetQuote(context.Background(), from, "hello")
			require.NoError(t, err)

			events := collectEvents(t, submission)
			require.Len(t, events, 2)
			assert.Equal(t, relay.SubmissionSubmitted, events[0].State)
			assert.Equal(t, relay.SubmissionConfirmed, events[1].State)
			require.NotNil(t, events[1].Refreshed)
			assert.Equal(t, "hello", events[1].Refreshed.Value)

			state, err := pipeline.Refresh(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "hello", state.Value)
			assert.Equal(t, from, state.Owner)

			nonce, err := session.Nonce(context.Background(), from)
			require.NoError(t, err)
			assert.Equal(t, int64(1), nonce.Int64())
		})
	}
}

func TestPipeline_SequentialSubmissionsUseFreshNonce(t *testing.T) {
	backend := relaytest.NewBackend()
	userKey := newTestKey(t)
	from := userKey.PublicKey().Address()

	pipeline, _ := newTestPipeline(t, backend, &relaytest.KeySigner{Key: userKey})

	for _, value := range []string{"first", "second"} {
		submission, err := pipeline.SetQuote(context.Background(), from, value)
		require.NoError(t, err)
		require.NoError(t, submission.Wait(context.Background()))
	}

	state, err := pipeline.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", state.Value)
}

func TestPipeline_MalformedSignatureAbortsBeforeGas(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"64 bytes", func(raw []byte) []byte { return raw[:64] }},
		{"66 bytes", func(raw []byte) []byte { return append(raw, 0x00) }},
		{"exotic v", func(raw []byte) []byte { raw[64] = 5; return raw }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			backend := relaytest.NewBackend()
			userKey := newTestKey(t)

			pipeline, _ := newTestPipeline(t, backend, &relaytest.KeySigner{Key: userKey, Mutate: test.mutate})

			submission, err := pipeline.SetQuote(context.Background(), userKey.PublicKey().Address(), "hello")
			require.ErrorIs(t, err, metatx.ErrMalformedSignature)
			assert.Nil(t, submission)

			estimate, send := backend.Counts()
			assert.Equal(t, 0, estimate)
			assert.Equal(t, 0, send)
		})
	}
}

func TestPipeline_SignerMismatchAbortsBeforeGas(t *testing.T) {
	backend := relaytest.NewBackend()
	userKey := newTestKey(t)

	pipeline, _ := newTestPipeline(t, backend, &relaytest.KeySigner{Key: newTestKey(t)})

	_, err := pipeline.SetQuote(context.Background(), userKey.PublicKey().Address(), "hello")
	require.ErrorIs(t, err, metatx.ErrSignerMismatch)

	estimate, _ := backend.Counts()
	assert.Equal(t, 0, estimate)
}

func TestPipeline_VerificationDisabled(t *testing.T) {
	backend := relaytest.NewBackend()
	userKey := newTestKey(t)

	config := testConfig()
	config.VerifySignature = false
	session, err := relay.Connect(context.Background(), backend, config, zap.NewNop())
	require.NoError(t, err)

	pipeline := relay.NewPipeline(session, &relaytest.KeySigner{Key: newTestKey(t)}, relay.NewSubmitter(session, newTestAccount(t)))

	submission, err := pipeline.SetQuote(context.Background(), userKey.PublicKey().Address(), "hello")
	require.NoError(t, err)

	err = submission.Wait(context.Background())
	require.ErrorIs(t, err, metatx.ErrGasEstimationFailed)
	assert.Contains(t, err.Error(), relaytest.SignerMismatchReason)
}

func TestPipeline_SignerErrorsPropagate(t *testing.T) {
	for _, signErr := range []error{metatx.ErrUserRejected, metatx.ErrWrongNetwork, metatx.ErrSignerUnavailable} {
		backend := relaytest.NewBackend()
		userKey := newTestKey(t)

		pipeline, _ := newTestPipeline(t, backend, &relaytest.KeySigner{Key: userKey, Err: signErr})

		_, err := pipeline.SetQuote(context.Background(), userKey.PublicKey().Address(), "hello")
		require.ErrorIs(t, err, signErr)

		estimate, _ := backend.Counts()
		assert.Equal(t, 0, estimate)
	}
}
