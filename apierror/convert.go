package apierror

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/pkg/errors"

	"github.com/deso-protocol/rosetta-aptos/aptos"
)

var nodeErrorKinds = map[aptos.NodeErrorCode]Kind{
	aptos.AccountNotFoundCode:          AccountNotFound,
	aptos.ResourceNotFoundCode:         ResourceNotFound,
	aptos.ModuleNotFoundCode:           ModuleNotFound,
	aptos.StructFieldNotFoundCode:      StructFieldNotFound,
	aptos.VersionNotFoundCode:          VersionNotFound,
	aptos.TransactionNotFoundCode:      TransactionNotFound,
	aptos.TableItemNotFoundCode:        TableItemNotFound,
	aptos.BlockNotFoundCode:            BlockNotFound,
	aptos.VersionPrunedCode:            VersionPruned,
	aptos.BlockPrunedCode:              BlockPruned,
	aptos.InvalidInputCode:             InvalidInput,
	// Kept as its own kind rather than folded into InvalidInput, so callers
	// can tell a rejected gas price update from malformed input.
	aptos.InvalidTransactionUpdateCode: InvalidTransactionUpdate,
	aptos.SequenceNumberTooOldCode:     SequenceNumberTooOld,
	aptos.VMErrorCode:                  VMError,
	aptos.HealthCheckFailedCode:        InternalError,
	aptos.MempoolIsFullCode:            MempoolIsFull,
	aptos.InternalErrorCode:            InternalError,
	aptos.WebFrameworkErrorCode:        InternalError,
	aptos.BcsNotSupportedCode:          InvalidInput,
	aptos.APIDisabledCode:              InternalError,
}

// FromNodeError maps a full node's classification onto the matching kind,
// carrying the node's message as the detail.
func FromNodeError(err *aptos.NodeError) *Error {
	kind, ok := nodeErrorKinds[err.ErrorCode]
	if !ok {
		kind = InternalError
	}
	return &Error{Kind: kind, Details: err.Message}
}

// FromRemote maps an error object returned by a rosetta server. The code
// selects the kind; the server's detail, or failing that its message,
// becomes the detail.
func FromRemote(rErr *types.Error) *Error {
	if rErr == nil {
		return New(InternalError)
	}

	details := rErr.Message
	if d, ok := rErr.Details["details"].(string); ok && d != "" {
		details = d
	}

	kind, ok := KindFromCode(rErr.Code)
	if !ok {
		return &Error{
			Kind:    InternalError,
			Details: fmt.Sprintf("unknown error code %d: %s", rErr.Code, details),
		}
	}

	return &Error{Kind: kind, Details: details}
}

// Convert classifies any error. Already classified errors pass through,
// node errors map by their code, malformed hex, binary, json, integer and
// address input is DeserializationFailed and anything else is InternalError.
func Convert(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var nodeErr *aptos.NodeError
	if errors.As(err, &nodeErr) {
		return FromNodeError(nodeErr)
	}

	if isDeserialization(err) {
		return Wrap(DeserializationFailed, err)
	}

	return Wrap(InternalError, err)
}

func isDeserialization(err error) bool {
	if errors.Is(err, hex.ErrLength) {
		return true
	}

	var (
		invalidByte  hex.InvalidByteError
		numErr       *strconv.NumError
		addressErr   *aptos.AddressParseError
		decodeErr    *aptos.DecodeError
		syntaxErr    *json.SyntaxError
		unmarshalErr *json.UnmarshalTypeError
	)

	return errors.As(err, &invalidByte) ||
		errors.As(err, &numErr) ||
		errors.As(err, &addressErr) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &unmarshalErr)
}
