package aptos

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/coinbase/rosetta-sdk-go/types"
	"golang.org/x/crypto/sha3"
)

const (
	AddressLength = 32

	// ed25519Scheme is appended to a public key before hashing it into an
	// authentication key.
	ed25519Scheme = byte(0x00)
)

type AccountAddress [AddressLength]byte

// AddressParseError reports a string that is not a valid account address.
type AddressParseError struct {
	Input  string
	Reason string
}

func (e *AddressParseError) Error() string {
	return fmt.Sprintf("invalid account address %q: %s", e.Input, e.Reason)
}

// ParseAccountAddress accepts an address with or without the 0x prefix.
// Short forms are left padded with zeros, so "0x1" is the framework address.
func ParseAccountAddress(s string) (AccountAddress, error) {
	var addr AccountAddress

	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(trimmed) == 0 {
		return addr, &AddressParseError{Input: s, Reason: "empty"}
	}
	if len(trimmed) > 2*AddressLength {
		return addr, &AddressParseError{Input: s, Reason: "too long"}
	}
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}

	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, &AddressParseError{Input: s, Reason: err.Error()}
	}
	copy(addr[AddressLength-len(decoded):], decoded)

	return addr, nil
}

// AddressFromBytes requires exactly AddressLength bytes.
func AddressFromBytes(b []byte) (AccountAddress, error) {
	var addr AccountAddress
	if len(b) != AddressLength {
		return addr, &AddressParseError{Input: hex.EncodeToString(b), Reason: "wrong length"}
	}
	copy(addr[:], b)
	return addr, nil
}

// AddressFromPublicKey derives the account address owned by an Ed25519
// public key: sha3-256(public key || scheme).
func AddressFromPublicKey(publicKey []byte) AccountAddress {
	hasher := sha3.New256()
	hasher.Write(publicKey)
	hasher.Write([]byte{ed25519Scheme})

	var addr AccountAddress
	copy(addr[:], hasher.Sum(nil))
	return addr
}

// AddressFromAccount parses the address of a rosetta account identifier.
func AddressFromAccount(account *types.AccountIdentifier) (AccountAddress, error) {
	if account == nil {
		return AccountAddress{}, &AddressParseError{Reason: "missing account identifier"}
	}
	return ParseAccountAddress(account.Address)
}

func (a AccountAddress) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a AccountAddress) Bytes() []byte {
	return append([]byte{}, a[:]...)
}

func (a AccountAddress) AccountIdentifier() *types.AccountIdentifier {
	return &types.AccountIdentifier{Address: a.String()}
}
