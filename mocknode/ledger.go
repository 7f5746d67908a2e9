package mocknode

import (
	"encoding/hex"
	"math"
	"time"

	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/deso-protocol/go-deadlock"
	merkletree "github.com/deso-protocol/go-merkle-tree"

	"github.com/deso-protocol/rosetta-aptos/aptos"
)

type Account struct {
	Balance        uint64
	SequenceNumber uint64
}

// Ledger is the chain state behind the node: balances, sequence numbers and
// a block per applied transaction.
type Ledger struct {
	mutex    deadlock.RWMutex
	accounts map[aptos.AccountAddress]*Account
	blocks   []*types.Block
	byHash   map[string]*types.Block
}

func NewLedger() *Ledger {
	genesis := &types.Block{
		BlockIdentifier: &types.BlockIdentifier{
			Index: 0,
			Hash:  hashHex([]byte("genesis")),
		},
		Timestamp:    time.Now().UnixMilli(),
		Transactions: []*types.Transaction{},
	}
	genesis.ParentBlockIdentifier = genesis.BlockIdentifier

	return &Ledger{
		accounts: map[aptos.AccountAddress]*Account{},
		blocks:   []*types.Block{genesis},
		byHash:   map[string]*types.Block{genesis.BlockIdentifier.Hash: genesis},
	}
}

func hashHex(data []byte) string {
	hash := merkletree.Sha256DoubleHash(data)
	return hex.EncodeToString(hash[:])
}

func (l *Ledger) Fund(address aptos.AccountAddress, amount uint64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct, ok := l.accounts[address]
	if !ok {
		acct = &Account{}
		l.accounts[address] = acct
	}
	acct.Balance += amount
}

// Account returns a copy of the account state.
func (l *Ledger) Account(address aptos.AccountAddress) (Account, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	acct, ok := l.accounts[address]
	if !ok {
		return Account{}, false
	}
	return *acct, true
}

func (l *Ledger) CurrentBlock() *types.Block {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.blocks[len(l.blocks)-1]
}

func (l *Ledger) GenesisBlock() *types.Block {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.blocks[0]
}

func (l *Ledger) BlockAtHeight(height int64) *types.Block {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if height < 0 || height >= int64(len(l.blocks)) {
		return nil
	}
	return l.blocks[height]
}

func (l *Ledger) BlockByHash(hash string) *types.Block {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.byHash[hash]
}

// Apply executes txn and seals it into a new block. Failures are reported
// the way a full node reports them.
func (l *Ledger) Apply(txn *aptos.RawTransaction, hash string, operations []*types.Operation) *aptos.NodeError {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	sender, err := aptos.AddressFromBytes(txn.Sender)
	if err != nil {
		return aptos.NewNodeError(aptos.InvalidInputCode, "%v", err)
	}
	target, err := aptos.AddressFromBytes(txn.Payload.Account)
	if err != nil {
		return aptos.NewNodeError(aptos.InvalidInputCode, "%v", err)
	}

	acct, ok := l.accounts[sender]
	if !ok {
		return aptos.NewNodeError(aptos.AccountNotFoundCode, "account %s not found", sender)
	}

	switch {
	case txn.SequenceNumber < acct.SequenceNumber:
		return aptos.NewNodeError(aptos.SequenceNumberTooOldCode, "sequence number %d is below %d", txn.SequenceNumber, acct.SequenceNumber)
	case txn.SequenceNumber > acct.SequenceNumber:
		return aptos.NewNodeError(aptos.VMErrorCode, "SEQUENCE_NUMBER_TOO_NEW")
	case txn.ExpirationTimestampSecs < uint64(time.Now().Unix()):
		return aptos.NewNodeError(aptos.VMErrorCode, "TRANSACTION_EXPIRED")
	case txn.MaxGasAmount < GasPerTransaction:
		return aptos.NewNodeError(aptos.VMErrorCode, "MAX_GAS_UNITS_BELOW_MIN_TRANSACTION_GAS_UNITS")
	}

	if txn.GasUnitPrice > math.MaxUint64/GasPerTransaction {
		return aptos.NewNodeError(aptos.VMErrorCode, "GAS_UNIT_PRICE_ABOVE_MAX_BOUND")
	}
	fee := GasPerTransaction * txn.GasUnitPrice

	switch txn.Payload.Function {
	case aptos.TransferFunc:
		amount := txn.Payload.Amount
		if amount > acct.Balance || acct.Balance-amount < fee {
			return aptos.NewNodeError(aptos.VMErrorCode, "INSUFFICIENT_BALANCE")
		}
		receiver, ok := l.accounts[target]
		if !ok {
			receiver = &Account{}
		}
		// A self transfer only pays the fee, so only a distinct receiver
		// can overflow.
		if receiver != acct && receiver.Balance > math.MaxUint64-amount {
			return aptos.NewNodeError(aptos.VMErrorCode, "ARITHMETIC_ERROR")
		}
		l.accounts[target] = receiver
		acct.Balance -= amount + fee
		receiver.Balance += amount
	case aptos.CreateAccountFn:
		if _, exists := l.accounts[target]; exists {
			return aptos.NewNodeError(aptos.VMErrorCode, "ACCOUNT_ALREADY_EXISTS")
		}
		if acct.Balance < fee {
			return aptos.NewNodeError(aptos.VMErrorCode, "INSUFFICIENT_BALANCE")
		}
		acct.Balance -= fee
		l.accounts[target] = &Account{}
	default:
		return aptos.NewNodeError(aptos.InvalidInputCode, "unsupported function %s", txn.Payload.Function)
	}
	acct.SequenceNumber++

	success := aptos.SuccessStatus
	executed := make([]*types.Operation, 0, len(operations))
	for _, op := range operations {
		copied := *op
		copied.Status = &success
		executed = append(executed, &copied)
	}

	parent := l.blocks[len(l.blocks)-1]
	block := &types.Block{
		BlockIdentifier: &types.BlockIdentifier{
			Index: parent.BlockIdentifier.Index + 1,
			Hash:  hashHex([]byte(parent.BlockIdentifier.Hash + hash)),
		},
		ParentBlockIdentifier: parent.BlockIdentifier,
		Timestamp:             time.Now().UnixMilli(),
		Transactions: []*types.Transaction{
			{
				TransactionIdentifier: &types.TransactionIdentifier{Hash: hash},
				Operations:            executed,
			},
		},
	}
	l.blocks = append(l.blocks, block)
	l.byHash[block.BlockIdentifier.Hash] = block

	return nil
}
