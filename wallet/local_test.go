package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/streamingfast/eth-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SignTypedData(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)

	local := NewLocal(key, big.NewInt(31337))
	message := testMessage(t, 31337, local.Address())

	raw, err := local.SignTypedData(context.Background(), local.Address(), message)
	require.NoError(t, err)
	require.Len(t, raw, metatx.SignatureLength)
	assert.Contains(t, []byte{27, 28}, raw[64])

	signer, err := metatx.VerifySigner(message, raw)
	require.NoError(t, err)
	assert.Equal(t, local.Address(), signer)
}

func TestLocal_WrongNetwork(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)

	local := NewLocal(key, big.NewInt(1))

	_, err = local.SignTypedData(context.Background(), local.Address(), testMessage(t, 31337, local.Address()))
	require.ErrorIs(t, err, metatx.ErrWrongNetwork)
}

func TestLocal_UnknownAccount(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)

	local := NewLocal(key, big.NewInt(31337))
	other := eth.MustNewAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")

	_, err = local.SignTypedData(context.Background(), other, testMessage(t, 31337, other))
	require.ErrorIs(t, err, metatx.ErrSignerUnavailable)
}

func TestLocal_CanceledContext(t *testing.T) {
	key, err := eth.NewRandomPrivateKey()
	require.NoError(t, err)

	local := NewLocal(key, big.NewInt(31337))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = local.SignTypedData(ctx, local.Address(), testMessage(t, 31337, local.Address()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalFromHex(t *testing.T) {
	// Anvil's first default account
	local, err := NewLocalFromHex("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, eth.MustNewAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"), local.Address())

	unprefixed, err := NewLocalFromHex("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, local.Address(), unprefixed.Address())

	_, err = NewLocalFromHex("not-a-key", big.NewInt(31337))
	require.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	prefixed, err := ParsePrivateKey("0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)
	unprefixed, err := ParsePrivateKey("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)

	// Anvil's second default account
	expected := eth.MustNewAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	assert.Equal(t, expected, prefixed.PublicKey().Address())
	assert.Equal(t, expected, unprefixed.PublicKey().Address())

	_, err = ParsePrivateKey("0xzz")
	require.Error(t, err)
}
