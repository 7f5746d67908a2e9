// Package apierror classifies every failure the rosetta client can observe
// into a closed set of kinds with a stable code, an HTTP status, a retriable
// flag and an optional free-text detail.
package apierror

import (
	"fmt"
	"net/http"

	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/aptos"
)

// Kind is a failure classification. Its value is its wire code: kinds local
// to the rosetta layer use 0-14, kinds mirroring a node error reuse the
// node's own code.
type Kind uint32

const (
	BlockParameterConflict    Kind = 0
	TransactionIsPending      Kind = 1
	NetworkIdentifierMismatch Kind = 2
	ChainIDMismatch           Kind = 3
	DeserializationFailed     Kind = 4
	InvalidTransferOperations Kind = 5
	InvalidSignatureType      Kind = 6
	InvalidMaxGasFees         Kind = 7
	InvalidGasMultiplier      Kind = 8
	InvalidOperations         Kind = 9
	MissingPayloadMetadata    Kind = 10
	UnsupportedCurrency       Kind = 11
	UnsupportedSignatureCount Kind = 12
	NodeIsOffline             Kind = 13
	TransactionParseError     Kind = 14

	InternalError            = Kind(aptos.InternalErrorCode)
	AccountNotFound          = Kind(aptos.AccountNotFoundCode)
	ResourceNotFound         = Kind(aptos.ResourceNotFoundCode)
	ModuleNotFound           = Kind(aptos.ModuleNotFoundCode)
	StructFieldNotFound      = Kind(aptos.StructFieldNotFoundCode)
	VersionNotFound          = Kind(aptos.VersionNotFoundCode)
	TransactionNotFound      = Kind(aptos.TransactionNotFoundCode)
	TableItemNotFound        = Kind(aptos.TableItemNotFoundCode)
	BlockNotFound            = Kind(aptos.BlockNotFoundCode)
	VersionPruned            = Kind(aptos.VersionPrunedCode)
	BlockPruned              = Kind(aptos.BlockPrunedCode)
	InvalidInput             = Kind(aptos.InvalidInputCode)
	InvalidTransactionUpdate = Kind(aptos.InvalidTransactionUpdateCode)
	SequenceNumberTooOld     = Kind(aptos.SequenceNumberTooOldCode)
	VMError                  = Kind(aptos.VMErrorCode)
	MempoolIsFull            = Kind(aptos.MempoolIsFullCode)
)

type kindInfo struct {
	name    string
	message string
}

var kinds = map[Kind]kindInfo{
	BlockParameterConflict:    {"BlockParameterConflict", "Block parameter conflict. Must provide either hash or index but not both"},
	TransactionIsPending:      {"TransactionIsPending", "Transaction is pending"},
	NetworkIdentifierMismatch: {"NetworkIdentifierMismatch", "Network identifier doesn't match"},
	ChainIDMismatch:           {"ChainIdMismatch", "Chain Id doesn't match"},
	DeserializationFailed:     {"DeserializationFailed", "Deserialization failed"},
	InvalidTransferOperations: {"InvalidTransferOperations", "Invalid operations for a transfer"},
	InvalidSignatureType:      {"InvalidSignatureType", "Invalid signature type"},
	InvalidMaxGasFees:         {"InvalidMaxGasFees", "Invalid max gas fee"},
	InvalidGasMultiplier:      {"InvalidGasMultiplier", "Invalid gas multiplier"},
	InvalidOperations:         {"InvalidOperations", "Invalid operations"},
	MissingPayloadMetadata:    {"MissingPayloadMetadata", "Payload metadata is missing"},
	UnsupportedCurrency:       {"UnsupportedCurrency", "Currency is unsupported"},
	UnsupportedSignatureCount: {"UnsupportedSignatureCount", "Number of signatures is not supported"},
	NodeIsOffline:             {"NodeIsOffline", "This API is unavailable for the node because he's offline"},
	TransactionParseError:     {"TransactionParseError", "Transaction failed to parse"},
	InternalError:             {"InternalError", "Internal error"},
	AccountNotFound:           {"AccountNotFound", "Account not found"},
	ResourceNotFound:          {"ResourceNotFound", "Resource not found"},
	ModuleNotFound:            {"ModuleNotFound", "Module not found"},
	StructFieldNotFound:       {"StructFieldNotFound", "Struct field not found"},
	VersionNotFound:           {"VersionNotFound", "Version not found"},
	TransactionNotFound:       {"TransactionNotFound", "Transaction not found"},
	TableItemNotFound:         {"TableItemNotFound", "Table item not found"},
	BlockNotFound:             {"BlockNotFound", "Block is missing events"},
	VersionPruned:             {"VersionPruned", "Version pruned"},
	BlockPruned:               {"BlockPruned", "Block pruned"},
	InvalidInput:              {"InvalidInput", "Invalid input"},
	InvalidTransactionUpdate:  {"InvalidTransactionUpdate", "Invalid transaction update.  Can only update gas unit price"},
	SequenceNumberTooOld:      {"SequenceNumberTooOld", "Sequence number too old.  Please create a new transaction with an updated sequence number"},
	VMError:                   {"VmError", "Transaction submission failed due to VM error"},
	MempoolIsFull:             {"MempoolIsFull", "Mempool is full all accounts"},
}

// All lists every kind, rosetta-local kinds first.
func All() []Kind {
	return []Kind{
		BlockParameterConflict,
		TransactionIsPending,
		NetworkIdentifierMismatch,
		ChainIDMismatch,
		DeserializationFailed,
		InvalidTransferOperations,
		InvalidSignatureType,
		InvalidMaxGasFees,
		InvalidGasMultiplier,
		InvalidOperations,
		MissingPayloadMetadata,
		UnsupportedCurrency,
		UnsupportedSignatureCount,
		NodeIsOffline,
		TransactionParseError,
		InternalError,
		AccountNotFound,
		ResourceNotFound,
		ModuleNotFound,
		StructFieldNotFound,
		VersionNotFound,
		TransactionNotFound,
		TableItemNotFound,
		BlockNotFound,
		VersionPruned,
		BlockPruned,
		InvalidInput,
		InvalidTransactionUpdate,
		SequenceNumberTooOld,
		VMError,
		MempoolIsFull,
	}
}

// KindFromCode looks a kind up by its wire code.
func KindFromCode(code int32) (Kind, bool) {
	if code < 0 {
		return 0, false
	}
	kind := Kind(code)
	_, ok := kinds[kind]
	return kind, ok
}

func (k Kind) Code() int32 {
	return int32(k)
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Message is the fixed default text of the kind.
func (k Kind) Message() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return kinds[InternalError].message
}

// Retriable reports whether the same request may succeed later unchanged.
func (k Kind) Retriable() bool {
	switch k {
	case AccountNotFound, BlockNotFound, MempoolIsFull:
		return true
	default:
		return false
	}
}

// Status is the HTTP status a server answers with for this kind.
func (k Kind) Status() int {
	switch k {
	case AccountNotFound,
		BlockNotFound,
		ResourceNotFound,
		ModuleNotFound,
		VersionNotFound,
		TransactionNotFound,
		StructFieldNotFound,
		TableItemNotFound:
		return http.StatusNotFound
	case MempoolIsFull:
		return http.StatusInsufficientStorage
	case BlockPruned, VersionPruned:
		return http.StatusGone
	case NodeIsOffline:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadRequest
	}
}

// ToRosetta is the wire form of the kind without any detail.
func (k Kind) ToRosetta() *types.Error {
	return New(k).ToRosetta()
}

// Error is an immutable classified failure.
type Error struct {
	Kind    Kind
	Details string
}

func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Details: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind, keeping its text as the detail.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return New(kind)
	}
	return &Error{Kind: kind, Details: err.Error()}
}

func (e *Error) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Kind.Message())
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Kind.Message(), e.Details)
}

// Is matches any *Error of the same kind, so callers can test with
// errors.Is(err, apierror.New(apierror.MempoolIsFull)).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

func (e *Error) Code() int32 {
	return e.Kind.Code()
}

func (e *Error) Status() int {
	return e.Kind.Status()
}

func (e *Error) Retriable() bool {
	return e.Kind.Retriable()
}

// Message returns the detail when one was carried, the kind's default
// text otherwise.
func (e *Error) Message() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Kind.Message()
}

// ToRosetta projects the error onto the rosetta error object. The detail,
// when present, travels as details.details.
func (e *Error) ToRosetta() *types.Error {
	rErr := &types.Error{
		Code:      e.Kind.Code(),
		Message:   e.Kind.Message(),
		Retriable: e.Kind.Retriable(),
	}
	if e.Details != "" {
		rErr.Details = map[string]interface{}{
			"details": e.Details,
		}
	}
	return rErr
}

// Errors is the rosetta form of every kind, as advertised by network/options.
func Errors() []*types.Error {
	all := All()
	result := make([]*types.Error, 0, len(all))
	for _, kind := range all {
		result = append(result, kind.ToRosetta())
	}
	return result
}
