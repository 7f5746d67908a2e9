package construction

import (
	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

// KeyResolver hands out the signing capability of an account for the
// duration of one submission. Implementations may be backed by memory, a
// hardware key store or a remote signer.
type KeyResolver interface {
	Resolve(account *types.AccountIdentifier) (keys.Signer, bool)
}

// KeyMap is an in-memory KeyResolver keyed by account address.
type KeyMap map[aptos.AccountAddress]keys.Signer

func (m KeyMap) Resolve(account *types.AccountIdentifier) (keys.Signer, bool) {
	address, err := aptos.AddressFromAccount(account)
	if err != nil {
		return nil, false
	}
	signer, ok := m[address]
	return signer, ok
}

// SignerFromPrivateKey imports a hex encoded private key on curve.
func SignerFromPrivateKey(privateKeyHex string, curve types.CurveType) (keys.Signer, error) {
	keyPair, err := keys.ImportPrivateKey(privateKeyHex, curve)
	if err != nil {
		return nil, apierror.Convert(err)
	}

	signer, err := keyPair.Signer()
	if err != nil {
		return nil, apierror.Convert(err)
	}
	return signer, nil
}

func signatureType(publicKey *types.PublicKey) (types.SignatureType, error) {
	switch publicKey.CurveType {
	case types.Edwards25519:
		return types.Ed25519, nil
	case types.Secp256k1:
		return types.Ecdsa, nil
	default:
		return "", apierror.Newf(apierror.InvalidSignatureType, "unsupported curve %s", publicKey.CurveType)
	}
}
