package construction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/mocknode"
)

const startingBalance = uint64(1_000_000)

type testEnv struct {
	node    *mocknode.Node
	client  *Client
	network *types.NetworkIdentifier
}

func newTestEnv(t *testing.T, config *mocknode.Config) *testEnv {
	require := require.New(t)

	node, err := mocknode.NewNode(config)
	require.NoError(err)

	handler, err := node.Handler()
	require.NoError(err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, WithTimeout(5*time.Second))
	require.NoError(err)

	return &testEnv{
		node:    node,
		client:  client,
		network: aptos.NetworkIdentifier(config.Network),
	}
}

type testAccount struct {
	signer  keys.Signer
	address aptos.AccountAddress
}

func newTestAccount(t *testing.T) *testAccount {
	keyPair, err := keys.GenerateKeypair(types.Edwards25519)
	require.NoError(t, err)

	signer, err := keyPair.Signer()
	require.NoError(t, err)

	return &testAccount{
		signer:  signer,
		address: aptos.AddressFromPublicKey(keyPair.PublicKey.Bytes),
	}
}

func expiry() uint64 {
	return uint64(time.Now().Add(time.Minute).Unix())
}

func requireKind(t *testing.T, err error, kind apierror.Kind) *apierror.Error {
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr), "unclassified error %v", err)
	require.Equal(t, kind, apiErr.Kind, apiErr.Error())
	return apiErr
}

func TestTransfer(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

	sender := newTestAccount(t)
	receiver := newTestAccount(t)
	env.node.Fund(sender.address, startingBalance)

	txn, err := env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 1000, expiry(), nil)
	require.NoError(err)
	require.NotEmpty(txn.Hash)

	balance, ok := env.node.Balance(sender.address)
	require.True(ok)
	require.Equal(startingBalance-1000-mocknode.GasPerTransaction*mocknode.GasUnitPrice, balance)

	balance, ok = env.node.Balance(receiver.address)
	require.True(ok)
	require.Equal(uint64(1000), balance)

	// The sequence number advances without the caller tracking it.
	_, err = env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 1000, expiry(), nil)
	require.NoError(err)

	balance, _ = env.node.Balance(receiver.address)
	require.Equal(uint64(2000), balance)

	height := int64(2)
	block, err := env.client.Block(context.Background(), &types.BlockRequest{
		NetworkIdentifier: env.network,
		BlockIdentifier:   &types.PartialBlockIdentifier{Index: &height},
	})
	require.NoError(err)
	require.Len(block.Block.Transactions, 1)

	height++
	_, err = env.client.Block(context.Background(), &types.BlockRequest{
		NetworkIdentifier: env.network,
		BlockIdentifier:   &types.PartialBlockIdentifier{Index: &height},
	})
	requireKind(t, err, apierror.BlockNotFound)
}

func TestCreateAccount(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

	sender := newTestAccount(t)
	newAccount := newTestAccount(t)
	env.node.Fund(sender.address, startingBalance)

	txn, err := env.client.CreateAccount(context.Background(), env.network, sender.signer, newAccount.address, expiry(), nil)
	require.NoError(err)
	require.NotEmpty(txn.Hash)

	balance, ok := env.node.Balance(newAccount.address)
	require.True(ok)
	require.Zero(balance)

	_, err = env.client.CreateAccount(context.Background(), env.network, sender.signer, newAccount.address, expiry(), nil)
	apiErr := requireKind(t, err, apierror.VMError)
	require.Equal("ACCOUNT_ALREADY_EXISTS", apiErr.Message())
}

func TestSubmitOperationsMissingKey(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

	sender := newTestAccount(t)
	receiver := newTestAccount(t)
	env.node.Fund(sender.address, startingBalance)

	operations := aptos.TransferOperations(sender.address, receiver.address, 10)
	_, err := env.client.SubmitOperations(context.Background(), env.network, KeyMap{}, operations, expiry(), nil)
	requireKind(t, err, apierror.MissingPayloadMetadata)

	require.Equal(1, env.node.Calls(ConstructionPreprocessEndpoint))
	require.Zero(env.node.Calls(ConstructionMetadataEndpoint))
}

func TestSubmitOperationsRejectsNodeFaults(t *testing.T) {
	tests := []struct {
		name      string
		faults    mocknode.Faults
		kind      apierror.Kind
		neverCall string
	}{
		{
			name:      "no required public keys",
			faults:    mocknode.Faults{OmitRequiredPublicKeys: true},
			kind:      apierror.MissingPayloadMetadata,
			neverCall: ConstructionMetadataEndpoint,
		},
		{
			name:      "no options",
			faults:    mocknode.Faults{OmitOptions: true},
			kind:      apierror.MissingPayloadMetadata,
			neverCall: ConstructionMetadataEndpoint,
		},
		{
			name:      "signers on unsigned transaction",
			faults:    mocknode.Faults{SignersOnUnsignedParse: true},
			kind:      apierror.InternalError,
			neverCall: ConstructionCombineEndpoint,
		},
		{
			name:      "unsigned operations tampered",
			faults:    mocknode.Faults{TamperUnsignedOperations: true},
			kind:      apierror.InternalError,
			neverCall: ConstructionCombineEndpoint,
		},
		{
			name:      "signing message substituted",
			faults:    mocknode.Faults{SubstituteSigningMessage: true},
			kind:      apierror.InternalError,
			neverCall: ConstructionCombineEndpoint,
		},
		{
			name:      "signed operations tampered",
			faults:    mocknode.Faults{TamperSignedOperations: true},
			kind:      apierror.InternalError,
			neverCall: ConstructionSubmitEndpoint,
		},
		{
			name:      "signers dropped",
			faults:    mocknode.Faults{DropSignedSigners: true},
			kind:      apierror.InternalError,
			neverCall: ConstructionSubmitEndpoint,
		},
		{
			name:      "wrong signer",
			faults:    mocknode.Faults{WrongSignedSigner: true},
			kind:      apierror.InternalError,
			neverCall: ConstructionSubmitEndpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

			sender := newTestAccount(t)
			receiver := newTestAccount(t)
			env.node.Fund(sender.address, startingBalance)
			env.node.SetFaults(tt.faults)

			_, err := env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
			requireKind(t, err, tt.kind)

			require.Zero(env.node.Calls(tt.neverCall))

			balance, _ := env.node.Balance(sender.address)
			require.Equal(startingBalance, balance)
		})
	}
}

func TestSubmitRetriable(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

	sender := newTestAccount(t)
	receiver := newTestAccount(t)
	env.node.Fund(sender.address, startingBalance)
	env.node.SetFaults(mocknode.Faults{
		FailEndpoint: ConstructionSubmitEndpoint,
		FailKind:     apierror.MempoolIsFull,
	})

	_, err := env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
	apiErr := requireKind(t, err, apierror.MempoolIsFull)
	require.True(apiErr.Retriable())
	require.Equal(http.StatusInsufficientStorage, apiErr.Status())

	env.node.SetFaults(mocknode.Faults{})
	_, err = env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
	require.NoError(err)
}

func TestSubmitNodeRejections(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

	sender := newTestAccount(t)
	receiver := newTestAccount(t)

	// Unknown accounts have no sequence number to build with.
	_, err := env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
	requireKind(t, err, apierror.AccountNotFound)

	env.node.Fund(sender.address, 5)
	_, err = env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
	apiErr := requireKind(t, err, apierror.VMError)
	require.Equal("INSUFFICIENT_BALANCE", apiErr.Message())

	env.node.Fund(sender.address, startingBalance)
	_, err = env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
	require.NoError(err)

	sequenceNumber := uint64(0)
	_, err = env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), &sequenceNumber)
	requireKind(t, err, apierror.SequenceNumberTooOld)
}

func TestOfflineNode(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local, Offline: true})

	sender := newTestAccount(t)
	receiver := newTestAccount(t)

	_, err := env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 10, expiry(), nil)
	apiErr := requireKind(t, err, apierror.NodeIsOffline)
	require.Equal(http.StatusMethodNotAllowed, apiErr.Status())
	require.Zero(env.node.Calls(ConstructionPayloadsEndpoint))
}

func TestConcurrentTransfers(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, &mocknode.Config{Network: aptos.Local})

	receiver := newTestAccount(t)
	senders := make([]*testAccount, 8)
	for i := range senders {
		senders[i] = newTestAccount(t)
		env.node.Fund(senders[i].address, startingBalance)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(senders))
	for i, sender := range senders {
		wg.Add(1)
		go func(i int, sender *testAccount) {
			defer wg.Done()
			_, errs[i] = env.client.Transfer(context.Background(), env.network, sender.signer, receiver.address, 100, expiry(), nil)
		}(i, sender)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(err)
	}

	balance, ok := env.node.Balance(receiver.address)
	require.True(ok)
	require.Equal(uint64(100*len(senders)), balance)
}
