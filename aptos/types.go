package aptos

import (
	"strings"

	"github.com/coinbase/rosetta-sdk-go/types"
)

type Network string

const (
	CreateAccountOpType = "create_account"
	WithdrawOpType      = "withdraw"
	DepositOpType       = "deposit"

	Blockchain = "aptos"

	Mainnet Network = "MAINNET"
	Testnet Network = "TESTNET"
	Devnet  Network = "DEVNET"
	Local   Network = "LOCAL"

	// NativeCoinType is the move type of the coin every fee and transfer
	// amount is denominated in.
	NativeCoinType = "0x1::aptos_coin::AptosCoin"

	// DefaultMaxFee is the ceiling, in octas, sent with every preprocess request.
	DefaultMaxFee = uint64(10000)

	DefaultFeeMultiplier = float64(1)
)

var (
	OperationTypes = []string{
		CreateAccountOpType,
		WithdrawOpType,
		DepositOpType,
	}

	SuccessStatus = "success"
	FailureStatus = "failure"

	chainIDs = map[Network]uint32{
		Mainnet: 1,
		Testnet: 2,
		Devnet:  3,
		Local:   4,
	}
)

// NativeCoin returns a fresh copy of the native currency so callers can't
// mutate a shared value.
func NativeCoin() *types.Currency {
	return &types.Currency{
		Symbol:   "APT",
		Decimals: 8,
		Metadata: map[string]interface{}{
			"move_type": NativeCoinType,
		},
	}
}

// NetworkIdentifier returns the identifier every request for network is sent with.
func NetworkIdentifier(network Network) *types.NetworkIdentifier {
	return &types.NetworkIdentifier{
		Blockchain: Blockchain,
		Network:    strings.ToLower(string(network)),
	}
}

// ChainID returns the chain id baked into transactions for network.
func ChainID(network Network) (uint32, bool) {
	id, ok := chainIDs[network]
	return id, ok
}
