package aptos

import (
	"fmt"

	"github.com/pkg/errors"
)

// NodeErrorCode is the classification a full node attaches to every failed
// REST call. Codes are reserved in the range 100-699 so they never collide
// with the codes of the rosetta layer.
type NodeErrorCode uint32

const (
	AccountNotFoundCode          NodeErrorCode = 101
	ResourceNotFoundCode         NodeErrorCode = 102
	ModuleNotFoundCode           NodeErrorCode = 103
	StructFieldNotFoundCode      NodeErrorCode = 104
	VersionNotFoundCode          NodeErrorCode = 105
	TransactionNotFoundCode      NodeErrorCode = 106
	TableItemNotFoundCode        NodeErrorCode = 107
	BlockNotFoundCode            NodeErrorCode = 108
	VersionPrunedCode            NodeErrorCode = 200
	BlockPrunedCode              NodeErrorCode = 201
	InvalidInputCode             NodeErrorCode = 300
	InvalidTransactionUpdateCode NodeErrorCode = 401
	SequenceNumberTooOldCode     NodeErrorCode = 402
	VMErrorCode                  NodeErrorCode = 403
	HealthCheckFailedCode        NodeErrorCode = 500
	MempoolIsFullCode            NodeErrorCode = 501
	InternalErrorCode            NodeErrorCode = 600
	WebFrameworkErrorCode        NodeErrorCode = 601
	BcsNotSupportedCode          NodeErrorCode = 602
	APIDisabledCode              NodeErrorCode = 603
)

var nodeErrorCodeNames = map[NodeErrorCode]string{
	AccountNotFoundCode:          "account_not_found",
	ResourceNotFoundCode:         "resource_not_found",
	ModuleNotFoundCode:           "module_not_found",
	StructFieldNotFoundCode:      "struct_field_not_found",
	VersionNotFoundCode:          "version_not_found",
	TransactionNotFoundCode:      "transaction_not_found",
	TableItemNotFoundCode:        "table_item_not_found",
	BlockNotFoundCode:            "block_not_found",
	VersionPrunedCode:            "version_pruned",
	BlockPrunedCode:              "block_pruned",
	InvalidInputCode:             "invalid_input",
	InvalidTransactionUpdateCode: "invalid_transaction_update",
	SequenceNumberTooOldCode:     "sequence_number_too_old",
	VMErrorCode:                  "vm_error",
	HealthCheckFailedCode:        "health_check_failed",
	MempoolIsFullCode:            "mempool_is_full",
	InternalErrorCode:            "internal_error",
	WebFrameworkErrorCode:        "web_framework_error",
	BcsNotSupportedCode:          "bcs_not_supported",
	APIDisabledCode:              "api_disabled",
}

func (c NodeErrorCode) String() string {
	if name, ok := nodeErrorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint32(c))
}

func (c NodeErrorCode) MarshalText() ([]byte, error) {
	if _, ok := nodeErrorCodeNames[c]; !ok {
		return nil, errors.Errorf("unknown node error code %d", uint32(c))
	}
	return []byte(c.String()), nil
}

func (c *NodeErrorCode) UnmarshalText(text []byte) error {
	for code, name := range nodeErrorCodeNames {
		if name == string(text) {
			*c = code
			return nil
		}
	}
	return errors.Errorf("unknown node error code %q", string(text))
}

// NodeError is the body of a failed REST call against a full node.
type NodeError struct {
	Message     string        `json:"message"`
	ErrorCode   NodeErrorCode `json:"error_code"`
	VMErrorCode *uint64       `json:"vm_error_code,omitempty"`
}

func NewNodeError(code NodeErrorCode, format string, args ...interface{}) *NodeError {
	return &NodeError{
		Message:   fmt.Sprintf(format, args...),
		ErrorCode: code,
	}
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("Error(%s): %s", e.ErrorCode, e.Message)
}

// DecodeError reports bytes that could not be decoded into the named type.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
