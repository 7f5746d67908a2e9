package aptos

import (
	"encoding/hex"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	rawTransactionSalt = "APTOS::RawTransaction"

	CoinModule      = "0x1::aptos_account"
	TransferFunc    = "transfer"
	CreateAccountFn = "create_account"
)

// EntryFunction is the payload of every transaction this client builds:
// a call into the account module with one target account and an amount.
type EntryFunction struct {
	Module   string `cramberry:"1"`
	Function string `cramberry:"2"`
	Account  []byte `cramberry:"3"`
	Amount   uint64 `cramberry:"4"`
}

type RawTransaction struct {
	Sender                  []byte        `cramberry:"1"`
	SequenceNumber          uint64        `cramberry:"2"`
	Payload                 EntryFunction `cramberry:"3"`
	MaxGasAmount            uint64        `cramberry:"4"`
	GasUnitPrice            uint64        `cramberry:"5"`
	ExpirationTimestampSecs uint64        `cramberry:"6"`
	ChainID                 uint32        `cramberry:"7"`
}

type Authenticator struct {
	PublicKey []byte `cramberry:"1"`
	Signature []byte `cramberry:"2"`
}

type SignedTransaction struct {
	Raw            RawTransaction  `cramberry:"1"`
	Authenticators []Authenticator `cramberry:"2"`
}

func (f *EntryFunction) Encode() ([]byte, error) {
	data, err := cramberry.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode entry function")
	}
	return data, nil
}

func DecodeEntryFunction(data []byte) (*EntryFunction, error) {
	var payload EntryFunction
	if err := cramberry.Unmarshal(data, &payload); err != nil {
		return nil, &DecodeError{Type: "EntryFunction", Err: err}
	}
	return &payload, nil
}

func (t *RawTransaction) Encode() ([]byte, error) {
	data, err := cramberry.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode raw transaction")
	}
	return data, nil
}

// SigningMessage is the exact byte sequence an account signs to authorize
// the transaction: sha3-256 of the domain salt followed by the encoding.
func (t *RawTransaction) SigningMessage() ([]byte, error) {
	encoded, err := t.Encode()
	if err != nil {
		return nil, err
	}

	prefix := sha3.Sum256([]byte(rawTransactionSalt))
	message := make([]byte, 0, len(prefix)+len(encoded))
	message = append(message, prefix[:]...)
	return append(message, encoded...), nil
}

func DecodeRawTransaction(data []byte) (*RawTransaction, error) {
	var txn RawTransaction
	if err := cramberry.Unmarshal(data, &txn); err != nil {
		return nil, &DecodeError{Type: "RawTransaction", Err: err}
	}
	return &txn, nil
}

func (t *SignedTransaction) Encode() ([]byte, error) {
	data, err := cramberry.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode signed transaction")
	}
	return data, nil
}

func DecodeSignedTransaction(data []byte) (*SignedTransaction, error) {
	var txn SignedTransaction
	if err := cramberry.Unmarshal(data, &txn); err != nil {
		return nil, &DecodeError{Type: "SignedTransaction", Err: err}
	}
	return &txn, nil
}

// TransactionCodec derives signing messages from hex encoded unsigned
// transactions as returned by construction/payloads.
type TransactionCodec struct{}

func (TransactionCodec) SigningMessage(unsignedTransaction string) ([]byte, error) {
	data, err := hex.DecodeString(unsignedTransaction)
	if err != nil {
		return nil, err
	}

	txn, err := DecodeRawTransaction(data)
	if err != nil {
		return nil, err
	}

	return txn.SigningMessage()
}
