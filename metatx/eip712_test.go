package metatx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/streamingfast/eth-go"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func legacyKeccak(data string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(data))
	return h.Sum(nil)
}

func testDomain() *Domain {
	return NewDomain("TestContract", "1", 5, eth.MustNewAddress("0x1234567890123456789012345678901234567890"))
}

func TestDomain_Salt(t *testing.T) {
	domain := testDomain()

	require.Equal(t, "TestContract", domain.Name)
	require.Equal(t, "1", domain.Version)
	require.Equal(t, eth.MustNewHash("0x0000000000000000000000000000000000000000000000000000000000000005"), eth.Hash(domain.Salt[:]))
	require.Equal(t, int64(5), domain.ChainID().Int64())

	other := NewDomain("TestContract", "1", 1337, domain.VerifyingContract)
	require.NotEqual(t, domain.Salt, other.Salt)
	require.NotEqual(t, domain.Separator(), other.Separator())
}

func TestDomain_Separator(t *testing.T) {
	domain := testDomain()

	separator := domain.Separator()
	require.Equal(t, 32, len(separator))
	require.Equal(t, separator, domain.Separator())

	typedData := apitypes.TypedData{
		Types:  Schema(),
		Domain: (&TypedMessage{Domain: *domain}).TypedData().Domain,
	}
	expected, err := typedData.HashStruct(DomainType, typedData.Domain.Map())
	require.NoError(t, err)
	require.Equal(t, []byte(expected), []byte(separator))
}

func TestTypeHashes(t *testing.T) {
	require.Equal(t, legacyKeccak("EIP712Domain(string name,string version,bytes32 salt,address verifyingContract)"), []byte(eip712DomainTypeHash))
	require.Equal(t, legacyKeccak("MetaTransaction(uint256 nonce,address from,bytes functionSignature)"), []byte(metaTransactionTypeHash))
}

func TestMetaTransaction_EIP712Encoding(t *testing.T) {
	msg := &MetaTransaction{
		Nonce:             big.NewInt(5),
		From:              eth.MustNewAddress("0x1111111111111111111111111111111111111111"),
		FunctionSignature: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	encoded := msg.EIP712EncodeData()
	require.Equal(t, 32*3, len(encoded))
	require.Equal(t, byte(5), encoded[31])
	require.Equal(t, []byte(msg.From), encoded[32+12:64])
	require.Equal(t, legacyKeccak(string(msg.FunctionSignature)), encoded[64:96])
}

func TestHashTypedData_MatchesGoEthereum(t *testing.T) {
	message := NewTypedMessage(
		testDomain(),
		big.NewInt(5),
		eth.MustNewAddress("0xabcdef0123456789abcdef0123456789abcdef01"),
		[]byte{0x5d, 0x1c, 0xa6, 0x31, 0x00, 0x01, 0x02},
	)

	expected, _, err := apitypes.TypedDataAndHash(message.TypedData())
	require.NoError(t, err)

	require.Equal(t, expected, []byte(message.Hash()))
}

func TestHashTypedData_ChangesWithFields(t *testing.T) {
	domain := testDomain()
	from := eth.MustNewAddress("0x1111111111111111111111111111111111111111")
	call := []byte{1, 2, 3}

	base := NewTypedMessage(domain, big.NewInt(1), from, call).Hash()

	require.NotEqual(t, base, NewTypedMessage(domain, big.NewInt(2), from, call).Hash())
	require.NotEqual(t, base, NewTypedMessage(domain, big.NewInt(1), eth.MustNewAddress("0x2222222222222222222222222222222222222222"), call).Hash())
	require.NotEqual(t, base, NewTypedMessage(domain, big.NewInt(1), from, []byte{1, 2, 4}).Hash())
}

func TestEncoding_Helpers(t *testing.T) {
	t.Run("padLeft", func(t *testing.T) {
		require.Equal(t, []byte{0, 0, 1, 2, 3}, padLeft([]byte{1, 2, 3}, 5))
		require.Equal(t, []byte{2, 3, 4, 5, 6}, padLeft([]byte{1, 2, 3, 4, 5, 6}, 5))
	})

	t.Run("encodeUint256", func(t *testing.T) {
		encoded := encodeUint256(big.NewInt(12345))
		require.Equal(t, 32, len(encoded))
		require.Equal(t, int64(12345), new(big.Int).SetBytes(encoded).Int64())
	})

	t.Run("encodeUint256_nil", func(t *testing.T) {
		require.Equal(t, make([]byte, 32), encodeUint256(nil))
	})
}
