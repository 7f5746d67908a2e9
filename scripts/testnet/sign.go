package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/deso-protocol/rosetta-aptos/aptos"
)

// Signs an unsigned transaction, as returned by construction/payloads, with
// an ed25519 private key and prints the signature hex.
//
//	go run ./scripts/testnet <private key hex> <unsigned transaction hex>
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: sign <private key hex> <unsigned transaction hex>")
		os.Exit(2)
	}

	keyPair, err := keys.ImportPrivateKey(os.Args[1], types.Edwards25519)
	if err != nil {
		panic(err)
	}
	signer, err := keyPair.Signer()
	if err != nil {
		panic(err)
	}

	message, err := aptos.TransactionCodec{}.SigningMessage(os.Args[2])
	if err != nil {
		panic(err)
	}

	sig, err := signer.Sign(&types.SigningPayload{
		AccountIdentifier: aptos.AddressFromPublicKey(keyPair.PublicKey.Bytes).AccountIdentifier(),
		Bytes:             message,
		SignatureType:     types.Ed25519,
	}, types.Ed25519)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s\n", hex.EncodeToString(sig.Bytes))
}
