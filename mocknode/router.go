package mocknode

import (
	"net/http"

	"github.com/coinbase/rosetta-sdk-go/asserter"
	"github.com/coinbase/rosetta-sdk-go/server"
)

func NewBlockchainRouter(node *Node, asserter *asserter.Asserter) http.Handler {
	networkAPIService := NewNetworkAPIService(node)
	networkAPIController := server.NewNetworkAPIController(networkAPIService, asserter)

	blockAPIService := NewBlockAPIService(node)
	blockAPIController := server.NewBlockAPIController(blockAPIService, asserter)

	accountAPIService := NewAccountAPIService(node)
	accountAPIController := server.NewAccountAPIController(accountAPIService, asserter)

	constructionAPIService := NewConstructionAPIService(node)
	constructionAPIController := server.NewConstructionAPIController(constructionAPIService, asserter)

	mempoolAPIService := NewMempoolAPIService(node)
	mempoolAPIController := server.NewMempoolAPIController(mempoolAPIService, asserter)

	return server.NewRouter(
		networkAPIController,
		blockAPIController,
		accountAPIController,
		constructionAPIController,
		mempoolAPIController,
	)
}
