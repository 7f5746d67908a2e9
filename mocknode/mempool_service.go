package mocknode

import (
	"context"

	"github.com/coinbase/rosetta-sdk-go/server"
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
)

// MempoolAPIService reports an always empty mempool: transactions are
// committed as soon as they are submitted.
type MempoolAPIService struct {
	node *Node
}

func NewMempoolAPIService(node *Node) server.MempoolAPIServicer {
	return &MempoolAPIService{
		node: node,
	}
}

func (s *MempoolAPIService) Mempool(ctx context.Context, request *types.NetworkRequest) (*types.MempoolResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}

	return &types.MempoolResponse{
		TransactionIdentifiers: []*types.TransactionIdentifier{},
	}, nil
}

func (s *MempoolAPIService) MempoolTransaction(ctx context.Context, request *types.MempoolTransactionRequest) (*types.MempoolTransactionResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}

	return nil, newErr(apierror.TransactionNotFound, "transaction %s is not pending", request.TransactionIdentifier.Hash)
}
