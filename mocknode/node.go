// Package mocknode is an in-process rosetta node for the aptos construction
// flow. It keeps a tiny ledger in memory, produces one block per submitted
// transaction and can be told to misbehave so clients can be tested against
// a node that lies about what it encoded.
package mocknode

import (
	"net/http"
	"strings"

	"github.com/coinbase/rosetta-sdk-go/asserter"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/deso-protocol/go-deadlock"
	"github.com/pkg/errors"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

const (
	RosettaVersion = "1.4.12"
	NodeVersion    = "0.0.1"

	// GasUnitPrice is the price of one gas unit in octas before the fee
	// multiplier is applied.
	GasUnitPrice = uint64(1)

	// GasPerTransaction is what every transaction built here consumes.
	GasPerTransaction = uint64(10)
)

type Config struct {
	Network aptos.Network
	Offline bool
}

// Faults makes the node deviate from the protocol in specific ways.
type Faults struct {
	OmitRequiredPublicKeys   bool
	OmitOptions              bool
	SignersOnUnsignedParse   bool
	TamperUnsignedOperations bool
	TamperSignedOperations   bool
	DropSignedSigners        bool
	WrongSignedSigner        bool
	SubstituteSigningMessage bool

	// FailEndpoint makes the named endpoint, e.g. "construction/submit",
	// answer with FailKind.
	FailEndpoint string
	FailKind     apierror.Kind
}

type Node struct {
	Config   *Config
	Network  *types.NetworkIdentifier
	ChainID  uint32
	Currency *types.Currency

	ledger *Ledger

	mutex  deadlock.Mutex
	faults Faults
	calls  map[string]int
}

func NewNode(config *Config) (*Node, error) {
	chainID, ok := aptos.ChainID(config.Network)
	if !ok {
		return nil, errors.Errorf("unknown network %q", config.Network)
	}

	return &Node{
		Config:   config,
		Network:  aptos.NetworkIdentifier(config.Network),
		ChainID:  chainID,
		Currency: aptos.NativeCoin(),
		ledger:   NewLedger(),
		calls:    map[string]int{},
	}, nil
}

func (node *Node) Online() bool {
	return !node.Config.Offline
}

func (node *Node) Ledger() *Ledger {
	return node.ledger
}

// Fund credits amount to address, creating the account if needed.
func (node *Node) Fund(address aptos.AccountAddress, amount uint64) {
	node.ledger.Fund(address, amount)
}

func (node *Node) Balance(address aptos.AccountAddress) (uint64, bool) {
	acct, ok := node.ledger.Account(address)
	if !ok {
		return 0, false
	}
	return acct.Balance, true
}

func (node *Node) SetFaults(faults Faults) {
	node.mutex.Lock()
	defer node.mutex.Unlock()
	node.faults = faults
}

func (node *Node) Faults() Faults {
	node.mutex.Lock()
	defer node.mutex.Unlock()
	return node.faults
}

// Calls returns how many requests endpoint has received.
func (node *Node) Calls(endpoint string) int {
	node.mutex.Lock()
	defer node.mutex.Unlock()
	return node.calls[endpoint]
}

func (node *Node) countCall(path string) {
	node.mutex.Lock()
	defer node.mutex.Unlock()
	node.calls[strings.TrimPrefix(path, "/")]++
}

// injected returns the configured failure for endpoint, if any.
func (node *Node) injected(endpoint string) *types.Error {
	faults := node.Faults()
	if faults.FailEndpoint != endpoint {
		return nil
	}
	return newErr(faults.FailKind, "injected failure on %s", endpoint)
}

// Handler serves the rosetta API of node.
func (node *Node) Handler() (http.Handler, error) {
	serverAsserter, err := asserter.NewServer(
		aptos.OperationTypes,
		false,
		[]*types.NetworkIdentifier{node.Network},
		nil,
		false,
		"",
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create server asserter")
	}

	router := NewBlockchainRouter(node, serverAsserter)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		node.countCall(r.URL.Path)
		router.ServeHTTP(w, r)
	}), nil
}
