package mocknode

import (
	"context"

	"github.com/coinbase/rosetta-sdk-go/server"
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

type NetworkAPIService struct {
	node *Node
}

func NewNetworkAPIService(node *Node) server.NetworkAPIServicer {
	return &NetworkAPIService{
		node: node,
	}
}

func (s *NetworkAPIService) NetworkList(ctx context.Context, request *types.MetadataRequest) (*types.NetworkListResponse, *types.Error) {
	if rErr := s.node.injected("network/list"); rErr != nil {
		return nil, rErr
	}

	return &types.NetworkListResponse{
		NetworkIdentifiers: []*types.NetworkIdentifier{s.node.Network},
	}, nil
}

func (s *NetworkAPIService) NetworkStatus(ctx context.Context, request *types.NetworkRequest) (*types.NetworkStatusResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}
	if rErr := s.node.injected("network/status"); rErr != nil {
		return nil, rErr
	}

	genesisBlock := s.node.ledger.GenesisBlock()
	currentBlock := s.node.ledger.CurrentBlock()

	return &types.NetworkStatusResponse{
		CurrentBlockIdentifier: currentBlock.BlockIdentifier,
		CurrentBlockTimestamp:  currentBlock.Timestamp,
		GenesisBlockIdentifier: genesisBlock.BlockIdentifier,
		OldestBlockIdentifier:  genesisBlock.BlockIdentifier,
		Peers:                  []*types.Peer{},
	}, nil
}

func (s *NetworkAPIService) NetworkOptions(ctx context.Context, request *types.NetworkRequest) (*types.NetworkOptionsResponse, *types.Error) {
	if rErr := s.node.injected("network/options"); rErr != nil {
		return nil, rErr
	}

	return &types.NetworkOptionsResponse{
		Version: &types.Version{
			RosettaVersion: RosettaVersion,
			NodeVersion:    NodeVersion,
		},
		Allow: &types.Allow{
			OperationStatuses: []*types.OperationStatus{
				{
					Status:     aptos.SuccessStatus,
					Successful: true,
				},
				{
					Status:     aptos.FailureStatus,
					Successful: false,
				},
			},
			OperationTypes: aptos.OperationTypes,
			Errors:         apierror.Errors(),
		},
	}, nil
}
