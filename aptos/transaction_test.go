package aptos

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func testTransaction() *RawTransaction {
	sender, _ := ParseAccountAddress("0xa")
	receiver, _ := ParseAccountAddress("0xb")

	return &RawTransaction{
		Sender:         sender.Bytes(),
		SequenceNumber: 7,
		Payload: EntryFunction{
			Module:   CoinModule,
			Function: TransferFunc,
			Account:  receiver.Bytes(),
			Amount:   100,
		},
		MaxGasAmount:            10000,
		GasUnitPrice:            1,
		ExpirationTimestampSecs: 1700000000,
		ChainID:                 4,
	}
}

func TestSigningMessage(t *testing.T) {
	require := require.New(t)

	txn := testTransaction()
	encoded, err := txn.Encode()
	require.NoError(err)

	message, err := txn.SigningMessage()
	require.NoError(err)

	prefix := sha3.Sum256([]byte("APTOS::RawTransaction"))
	require.Equal(prefix[:], message[:len(prefix)])
	require.Equal(encoded, message[len(prefix):])

	fromHex, err := TransactionCodec{}.SigningMessage(hex.EncodeToString(encoded))
	require.NoError(err)
	require.Equal(message, fromHex)
}

func TestSigningMessageChangesWithTransaction(t *testing.T) {
	first, err := testTransaction().SigningMessage()
	require.NoError(t, err)

	altered := testTransaction()
	altered.Payload.Amount = 101
	second, err := altered.SigningMessage()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestTransactionCodecRejectsBadHex(t *testing.T) {
	_, err := TransactionCodec{}.SigningMessage("not hex")
	require.Error(t, err)
}

func TestSignedTransactionDecode(t *testing.T) {
	signed := &SignedTransaction{
		Raw: *testTransaction(),
		Authenticators: []Authenticator{
			{PublicKey: []byte{1, 2, 3}, Signature: []byte{4, 5, 6}},
		},
	}

	encoded, err := signed.Encode()
	require.NoError(t, err)

	decoded, err := DecodeSignedTransaction(encoded)
	require.NoError(t, err)
	require.Equal(t, signed.Raw.SequenceNumber, decoded.Raw.SequenceNumber)
	require.Len(t, decoded.Authenticators, 1)
	require.Equal(t, []byte{4, 5, 6}, decoded.Authenticators[0].Signature)
}
