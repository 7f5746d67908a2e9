package mocknode

import (
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
)

// wrapErr renders err as the rosetta error of kind, keeping err as details.
func wrapErr(kind apierror.Kind, err error) *types.Error {
	return apierror.Wrap(kind, err).ToRosetta()
}

func newErr(kind apierror.Kind, format string, args ...interface{}) *types.Error {
	return apierror.Newf(kind, format, args...).ToRosetta()
}

// convertErr classifies err the way the client would.
func convertErr(err error) *types.Error {
	return apierror.Convert(err).ToRosetta()
}

func (node *Node) requireOnline() *types.Error {
	if !node.Online() {
		return newErr(apierror.NodeIsOffline, "node is offline")
	}
	return nil
}
