package mocknode

import (
	"context"
	"strconv"

	"github.com/coinbase/rosetta-sdk-go/server"
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

type AccountAPIService struct {
	node *Node
}

func NewAccountAPIService(node *Node) server.AccountAPIServicer {
	return &AccountAPIService{
		node: node,
	}
}

func (s *AccountAPIService) AccountBalance(
	ctx context.Context,
	request *types.AccountBalanceRequest,
) (*types.AccountBalanceResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}
	if rErr := s.node.injected("account/balance"); rErr != nil {
		return nil, rErr
	}

	for _, currency := range request.Currencies {
		if currency.Symbol != s.node.Currency.Symbol {
			return nil, newErr(apierror.UnsupportedCurrency, "unsupported currency %s", currency.Symbol)
		}
	}

	address, err := aptos.AddressFromAccount(request.AccountIdentifier)
	if err != nil {
		return nil, convertErr(err)
	}

	account, ok := s.node.ledger.Account(address)
	if !ok {
		return nil, newErr(apierror.AccountNotFound, "account %s not found", address)
	}

	return &types.AccountBalanceResponse{
		BlockIdentifier: s.node.ledger.CurrentBlock().BlockIdentifier,
		Balances: []*types.Amount{
			{
				Value:    strconv.FormatUint(account.Balance, 10),
				Currency: s.node.Currency,
			},
		},
		Metadata: map[string]interface{}{
			"sequence_number": strconv.FormatUint(account.SequenceNumber, 10),
		},
	}, nil
}

// AccountCoins is not served: the chain is account based.
func (s *AccountAPIService) AccountCoins(
	ctx context.Context,
	request *types.AccountCoinsRequest,
) (*types.AccountCoinsResponse, *types.Error) {
	return nil, newErr(apierror.InvalidInput, "account/coins is not supported")
}
