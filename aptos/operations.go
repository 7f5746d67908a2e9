package aptos

import (
	"math/big"

	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// OperationMetadata is attached to create_account operations to name the
// account paying for the creation.
type OperationMetadata struct {
	Sender *types.AccountIdentifier `json:"sender,omitempty"`
}

// PreprocessMetadata is sent by the client with construction/preprocess.
// Integers travel as strings to survive JSON number precision.
type PreprocessMetadata struct {
	ExpiryTimeSecs string `json:"expiry_time_secs,omitempty"`
	SequenceNumber string `json:"sequence_number,omitempty"`
}

// PreprocessOptions is what preprocess hands back to be forwarded to
// construction/metadata.
type PreprocessOptions struct {
	Sender             string  `json:"sender"`
	ExpiryTimeSecs     string  `json:"expiry_time_secs,omitempty"`
	SequenceNumber     string  `json:"sequence_number,omitempty"`
	MaxFee             string  `json:"max_fee,omitempty"`
	FeeMultiplier      float64 `json:"fee_multiplier,omitempty"`
	TransactionPayload string  `json:"transaction_payload"`
}

// ConstructionMetadata is produced by construction/metadata and threaded
// unmodified into construction/payloads.
type ConstructionMetadata struct {
	Sender         string `json:"sender"`
	SequenceNumber string `json:"sequence_number"`
	MaxGasAmount   string `json:"max_gas_amount"`
	GasUnitPrice   string `json:"gas_unit_price"`
	ExpiryTimeSecs string `json:"expiry_time_secs"`
	ChainID        uint32 `json:"chain_id"`
}

func operation(index int64, status *string, opType string, account AccountAddress) *types.Operation {
	return &types.Operation{
		OperationIdentifier: &types.OperationIdentifier{Index: index},
		Type:                opType,
		Status:              status,
		Account:             account.AccountIdentifier(),
	}
}

// CreateAccountOperation creates newAccount, paid for by sender.
func CreateAccountOperation(index int64, status *string, newAccount AccountAddress, sender AccountAddress) *types.Operation {
	op := operation(index, status, CreateAccountOpType, newAccount)
	// MarshalMap only fails on values json can't encode.
	op.Metadata, _ = types.MarshalMap(&OperationMetadata{Sender: sender.AccountIdentifier()})
	return op
}

// WithdrawOperation debits amount from account; the value is negative.
func WithdrawOperation(index int64, status *string, account AccountAddress, currency *types.Currency, amount uint64) *types.Operation {
	op := operation(index, status, WithdrawOpType, account)
	op.Amount = &types.Amount{
		Value:    AmountValue(amount, true),
		Currency: currency,
	}
	return op
}

// DepositOperation credits amount to account.
func DepositOperation(index int64, status *string, account AccountAddress, currency *types.Currency, amount uint64) *types.Operation {
	op := operation(index, status, DepositOpType, account)
	op.Amount = &types.Amount{
		Value:    AmountValue(amount, false),
		Currency: currency,
	}
	return op
}

// TransferOperations is a withdraw from sender at index 0 and a deposit to
// receiver at index 1, both in the native coin.
func TransferOperations(sender AccountAddress, receiver AccountAddress, amount uint64) []*types.Operation {
	return []*types.Operation{
		WithdrawOperation(0, nil, sender, NativeCoin(), amount),
		DepositOperation(1, nil, receiver, NativeCoin(), amount),
	}
}

func CreateAccountOperations(sender AccountAddress, newAccount AccountAddress) []*types.Operation {
	return []*types.Operation{
		CreateAccountOperation(0, nil, newAccount, sender),
	}
}

// AmountValue renders amount as a decimal string, negated for withdrawals.
func AmountValue(amount uint64, withdraw bool) string {
	value := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
	if withdraw {
		return "-" + value.String()
	}
	return value.String()
}

// ParseAmount validates that amount is an integral quantity of the native
// coin and returns it in base units, sign included.
func ParseAmount(amount *types.Amount) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, errors.New("amount is missing")
	}
	if amount.Currency == nil || amount.Currency.Symbol != NativeCoin().Symbol {
		return decimal.Zero, errors.New("unsupported currency")
	}

	value, err := decimal.NewFromString(amount.Value)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid amount %q", amount.Value)
	}
	if !value.Equal(value.Truncate(0)) {
		return decimal.Zero, errors.Errorf("amount %q is not integral", amount.Value)
	}

	return value, nil
}

// FormatAmount renders base units in whole coins, e.g. 150000000 -> "1.5".
func FormatAmount(value string, currency *types.Currency) (string, error) {
	units, err := decimal.NewFromString(value)
	if err != nil {
		return "", errors.Wrapf(err, "invalid amount %q", value)
	}
	return units.Shift(-currency.Decimals).String(), nil
}

// ParseCoinAmount reads an amount in whole coins, e.g. "1.5", and returns it
// in base units. Precision beyond the currency's decimals is rejected.
func ParseCoinAmount(value string, currency *types.Currency) (uint64, error) {
	coins, err := decimal.NewFromString(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid amount %q", value)
	}

	units := coins.Shift(currency.Decimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, errors.Errorf("amount %q has more than %d decimals", value, currency.Decimals)
	}
	if units.IsNegative() || !units.BigInt().IsUint64() {
		return 0, errors.Errorf("amount %q out of range", value)
	}

	return units.BigInt().Uint64(), nil
}
