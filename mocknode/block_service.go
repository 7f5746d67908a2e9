package mocknode

import (
	"context"

	"github.com/coinbase/rosetta-sdk-go/server"
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
)

type BlockAPIService struct {
	node *Node
}

func NewBlockAPIService(node *Node) server.BlockAPIServicer {
	return &BlockAPIService{
		node: node,
	}
}

func (s *BlockAPIService) Block(
	ctx context.Context,
	request *types.BlockRequest,
) (*types.BlockResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}
	if rErr := s.node.injected("block"); rErr != nil {
		return nil, rErr
	}

	block, rErr := s.lookup(request.BlockIdentifier)
	if rErr != nil {
		return nil, rErr
	}

	return &types.BlockResponse{
		Block: block,
	}, nil
}

func (s *BlockAPIService) BlockTransaction(
	ctx context.Context,
	request *types.BlockTransactionRequest,
) (*types.BlockTransactionResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}

	index := request.BlockIdentifier.Index
	block, rErr := s.lookup(&types.PartialBlockIdentifier{Index: &index})
	if rErr != nil {
		return nil, rErr
	}
	if block.BlockIdentifier.Hash != request.BlockIdentifier.Hash {
		return nil, newErr(apierror.BlockNotFound, "block %d has hash %s", index, block.BlockIdentifier.Hash)
	}

	for _, txn := range block.Transactions {
		if txn.TransactionIdentifier.Hash == request.TransactionIdentifier.Hash {
			return &types.BlockTransactionResponse{
				Transaction: txn,
			}, nil
		}
	}

	return nil, newErr(apierror.TransactionNotFound, "transaction %s not in block %d", request.TransactionIdentifier.Hash, index)
}

// lookup resolves a block by index or by hash, never both. No identifier
// at all means the current block.
func (s *BlockAPIService) lookup(identifier *types.PartialBlockIdentifier) (*types.Block, *types.Error) {
	var block *types.Block
	switch {
	case identifier == nil || (identifier.Index == nil && identifier.Hash == nil):
		block = s.node.ledger.CurrentBlock()
	case identifier.Index != nil && identifier.Hash != nil:
		return nil, newErr(apierror.BlockParameterConflict, "index %d and hash %s", *identifier.Index, *identifier.Hash)
	case identifier.Index != nil:
		block = s.node.ledger.BlockAtHeight(*identifier.Index)
	default:
		block = s.node.ledger.BlockByHash(*identifier.Hash)
	}

	if block == nil {
		return nil, newErr(apierror.BlockNotFound, "block not found")
	}
	return block, nil
}
