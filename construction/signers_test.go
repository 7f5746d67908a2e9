package construction

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/stretchr/testify/require"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

// scriptedNode answers the construction endpoints for a transaction that
// needs two signers, reporting signedSigners from the signed parse.
type scriptedNode struct {
	mutex sync.Mutex
	calls map[string]int

	operations    []*types.Operation
	unsigned      string
	payloads      []*types.SigningPayload
	required      []*types.AccountIdentifier
	signedSigners []*types.AccountIdentifier

	// emptyUnsignedSigners makes the unsigned parse include an empty
	// account_identifier_signers list.
	emptyUnsignedSigners bool
}

func (n *scriptedNode) Calls(endpoint string) int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.calls[endpoint]
}

func (n *scriptedNode) handler(t *testing.T) http.Handler {
	reply := func(w http.ResponseWriter, response interface{}) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/"+ConstructionPreprocessEndpoint, func(w http.ResponseWriter, r *http.Request) {
		reply(w, &types.ConstructionPreprocessResponse{
			Options:            map[string]interface{}{"scripted": true},
			RequiredPublicKeys: n.required,
		})
	})
	mux.HandleFunc("/"+ConstructionMetadataEndpoint, func(w http.ResponseWriter, r *http.Request) {
		reply(w, &types.ConstructionMetadataResponse{
			Metadata: map[string]interface{}{"scripted": true},
		})
	})
	mux.HandleFunc("/"+ConstructionPayloadsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		reply(w, &types.ConstructionPayloadsResponse{
			UnsignedTransaction: n.unsigned,
			Payloads:            n.payloads,
		})
	})
	mux.HandleFunc("/"+ConstructionParseEndpoint, func(w http.ResponseWriter, r *http.Request) {
		var request types.ConstructionParseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		if !request.Signed && n.emptyUnsignedSigners {
			reply(w, map[string]interface{}{
				"operations":                 n.operations,
				"account_identifier_signers": []interface{}{},
			})
			return
		}

		response := &types.ConstructionParseResponse{Operations: n.operations}
		if request.Signed {
			response.AccountIdentifierSigners = n.signedSigners
		}
		reply(w, response)
	})
	mux.HandleFunc("/"+ConstructionCombineEndpoint, func(w http.ResponseWriter, r *http.Request) {
		reply(w, &types.ConstructionCombineResponse{SignedTransaction: "5167"})
	})
	mux.HandleFunc("/"+ConstructionSubmitEndpoint, func(w http.ResponseWriter, r *http.Request) {
		reply(w, &types.TransactionIdentifierResponse{
			TransactionIdentifier: &types.TransactionIdentifier{Hash: "5167"},
		})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.mutex.Lock()
		n.calls[r.URL.Path[1:]]++
		n.mutex.Unlock()
		mux.ServeHTTP(w, r)
	})
}

type twoSignerFixture struct {
	first    *testAccount
	second   *testAccount
	receiver *testAccount
	unsigned string
	message  []byte
}

func newTwoSignerFixture(t *testing.T) *twoSignerFixture {
	first := newTestAccount(t)
	second := newTestAccount(t)
	receiver := newTestAccount(t)

	raw := &aptos.RawTransaction{
		Sender:         first.address.Bytes(),
		SequenceNumber: 0,
		Payload: aptos.EntryFunction{
			Module:   aptos.CoinModule,
			Function: aptos.TransferFunc,
			Account:  receiver.address.Bytes(),
			Amount:   10,
		},
		MaxGasAmount:            1000,
		GasUnitPrice:            1,
		ExpirationTimestampSecs: uint64(time.Now().Add(time.Minute).Unix()),
		ChainID:                 4,
	}
	encoded, err := raw.Encode()
	require.NoError(t, err)
	message, err := raw.SigningMessage()
	require.NoError(t, err)

	return &twoSignerFixture{
		first:    first,
		second:   second,
		receiver: receiver,
		unsigned: hex.EncodeToString(encoded),
		message:  message,
	}
}

func (f *twoSignerFixture) node(signedSigners []*types.AccountIdentifier) *scriptedNode {
	payload := func(account *testAccount) *types.SigningPayload {
		return &types.SigningPayload{
			AccountIdentifier: account.address.AccountIdentifier(),
			Bytes:             f.message,
			SignatureType:     types.Ed25519,
		}
	}

	return &scriptedNode{
		calls:      map[string]int{},
		operations: f.operations(),
		unsigned:   f.unsigned,
		payloads:   []*types.SigningPayload{payload(f.first), payload(f.second)},
		required: []*types.AccountIdentifier{
			f.first.address.AccountIdentifier(),
			f.second.address.AccountIdentifier(),
		},
		signedSigners: signedSigners,
	}
}

func (f *twoSignerFixture) operations() []*types.Operation {
	return aptos.TransferOperations(f.first.address, f.receiver.address, 10)
}

func (f *twoSignerFixture) submit(t *testing.T, node *scriptedNode) (*types.TransactionIdentifier, error) {
	server := httptest.NewServer(node.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)

	return client.SubmitOperations(
		context.Background(),
		aptos.NetworkIdentifier(aptos.Local),
		KeyMap{f.first.address: f.first.signer, f.second.address: f.second.signer},
		f.operations(),
		expiry(),
		nil,
	)
}

func TestSignedParseSignerOrder(t *testing.T) {
	fixture := newTwoSignerFixture(t)
	a := fixture.first.address.AccountIdentifier()
	b := fixture.second.address.AccountIdentifier()

	tests := []struct {
		name          string
		signedSigners []*types.AccountIdentifier
		succeeds      bool
	}{
		{"payload order", []*types.AccountIdentifier{a, b}, true},
		{"swapped order", []*types.AccountIdentifier{b, a}, false},
		{"missing signer", []*types.AccountIdentifier{a}, false},
		{"repeated signer", []*types.AccountIdentifier{a, a}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			node := fixture.node(tt.signedSigners)
			txn, err := fixture.submit(t, node)

			require.Equal(2, node.Calls(ConstructionParseEndpoint))
			require.Equal(1, node.Calls(ConstructionCombineEndpoint))

			if tt.succeeds {
				require.NoError(err)
				require.Equal("5167", txn.Hash)
				require.Equal(1, node.Calls(ConstructionSubmitEndpoint))
				return
			}

			requireKind(t, err, apierror.InternalError)
			require.Zero(node.Calls(ConstructionSubmitEndpoint))
		})
	}
}

func TestUnsignedParseWithEmptySignerList(t *testing.T) {
	require := require.New(t)
	fixture := newTwoSignerFixture(t)

	node := fixture.node([]*types.AccountIdentifier{
		fixture.first.address.AccountIdentifier(),
		fixture.second.address.AccountIdentifier(),
	})
	node.emptyUnsignedSigners = true

	_, err := fixture.submit(t, node)
	requireKind(t, err, apierror.InternalError)
	require.Equal(1, node.Calls(ConstructionParseEndpoint))
	require.Zero(node.Calls(ConstructionCombineEndpoint))
	require.Zero(node.Calls(ConstructionSubmitEndpoint))
}

func TestAccountsEqual(t *testing.T) {
	a := &types.AccountIdentifier{Address: "0xa"}
	b := &types.AccountIdentifier{Address: "0xb"}

	tests := []struct {
		name     string
		expected []*types.AccountIdentifier
		actual   []*types.AccountIdentifier
		equal    bool
	}{
		{"same order", []*types.AccountIdentifier{a, b}, []*types.AccountIdentifier{a, b}, true},
		{"reordered", []*types.AccountIdentifier{a, b}, []*types.AccountIdentifier{b, a}, false},
		{"shorter", []*types.AccountIdentifier{a, b}, []*types.AccountIdentifier{a}, false},
		{"longer", []*types.AccountIdentifier{a}, []*types.AccountIdentifier{a, b}, false},
		{"both empty", nil, []*types.AccountIdentifier{}, true},
		{"equal by value", []*types.AccountIdentifier{a}, []*types.AccountIdentifier{{Address: "0xa"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.equal, accountsEqual(tt.expected, tt.actual))
		})
	}
}
