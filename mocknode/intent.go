package mocknode

import (
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

// intent is what a list of operations asks the chain to do.
type intent struct {
	sender  aptos.AccountAddress
	payload aptos.EntryFunction
}

func (i *intent) target() aptos.AccountAddress {
	// Payload.Account is always AddressLength bytes when built here.
	target, _ := aptos.AddressFromBytes(i.payload.Account)
	return target
}

// operations rebuilds the canonical operations of i.
func (i *intent) operations() []*types.Operation {
	if i.payload.Function == aptos.CreateAccountFn {
		return aptos.CreateAccountOperations(i.sender, i.target())
	}
	return aptos.TransferOperations(i.sender, i.target(), i.payload.Amount)
}

func intentFromTransaction(txn *aptos.RawTransaction) (*intent, error) {
	sender, err := aptos.AddressFromBytes(txn.Sender)
	if err != nil {
		return nil, err
	}
	if _, err := aptos.AddressFromBytes(txn.Payload.Account); err != nil {
		return nil, err
	}
	switch txn.Payload.Function {
	case aptos.TransferFunc, aptos.CreateAccountFn:
	default:
		return nil, apierror.Newf(apierror.TransactionParseError, "unsupported function %s::%s", txn.Payload.Module, txn.Payload.Function)
	}
	return &intent{sender: sender, payload: txn.Payload}, nil
}

// intentFromOperations accepts a lone create_account or a withdraw/deposit
// pair of equal magnitude.
func intentFromOperations(operations []*types.Operation) (*intent, *types.Error) {
	switch len(operations) {
	case 1:
		return createAccountIntent(operations[0])
	case 2:
		return transferIntent(operations)
	default:
		return nil, newErr(apierror.InvalidOperations, "expected 1 or 2 operations, got %d", len(operations))
	}
}

func createAccountIntent(op *types.Operation) (*intent, *types.Error) {
	if op.Type != aptos.CreateAccountOpType {
		return nil, newErr(apierror.InvalidOperations, "unexpected operation %s", op.Type)
	}

	var metadata aptos.OperationMetadata
	if err := types.UnmarshalMap(op.Metadata, &metadata); err != nil {
		return nil, wrapErr(apierror.InvalidOperations, err)
	}
	if metadata.Sender == nil {
		return nil, newErr(apierror.InvalidOperations, "create_account has no sender")
	}

	sender, err := aptos.AddressFromAccount(metadata.Sender)
	if err != nil {
		return nil, convertErr(err)
	}
	newAccount, err := aptos.AddressFromAccount(op.Account)
	if err != nil {
		return nil, convertErr(err)
	}

	return &intent{
		sender: sender,
		payload: aptos.EntryFunction{
			Module:   aptos.CoinModule,
			Function: aptos.CreateAccountFn,
			Account:  newAccount.Bytes(),
		},
	}, nil
}

func transferIntent(operations []*types.Operation) (*intent, *types.Error) {
	var withdraw, deposit *types.Operation
	for _, op := range operations {
		switch op.Type {
		case aptos.WithdrawOpType:
			withdraw = op
		case aptos.DepositOpType:
			deposit = op
		}
	}
	if withdraw == nil || deposit == nil {
		return nil, newErr(apierror.InvalidTransferOperations, "a transfer needs one withdraw and one deposit")
	}

	for _, op := range []*types.Operation{withdraw, deposit} {
		if op.Amount != nil && op.Amount.Currency != nil && op.Amount.Currency.Symbol != aptos.NativeCoin().Symbol {
			return nil, newErr(apierror.UnsupportedCurrency, "unsupported currency %s", op.Amount.Currency.Symbol)
		}
	}

	withdrawn, err := aptos.ParseAmount(withdraw.Amount)
	if err != nil {
		return nil, wrapErr(apierror.InvalidTransferOperations, err)
	}
	deposited, err := aptos.ParseAmount(deposit.Amount)
	if err != nil {
		return nil, wrapErr(apierror.InvalidTransferOperations, err)
	}
	if !withdrawn.IsNegative() || !deposited.IsPositive() || !withdrawn.Neg().Equal(deposited) {
		return nil, newErr(apierror.InvalidTransferOperations, "withdraw %s and deposit %s don't balance", withdrawn, deposited)
	}
	if !deposited.BigInt().IsUint64() {
		return nil, newErr(apierror.InvalidTransferOperations, "amount %s out of range", deposited)
	}

	sender, err := aptos.AddressFromAccount(withdraw.Account)
	if err != nil {
		return nil, convertErr(err)
	}
	receiver, err := aptos.AddressFromAccount(deposit.Account)
	if err != nil {
		return nil, convertErr(err)
	}

	return &intent{
		sender: sender,
		payload: aptos.EntryFunction{
			Module:   aptos.CoinModule,
			Function: aptos.TransferFunc,
			Account:  receiver.Bytes(),
			Amount:   deposited.BigInt().Uint64(),
		},
	}, nil
}
