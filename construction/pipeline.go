package construction

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/coinbase/rosetta-sdk-go/asserter"
	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/golang/glog"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

const (
	stepDerive   = "derive"
	stepMetadata = "metadata"
	stepPayloads = "payloads"
	stepSign     = "sign"
	stepSubmit   = "submit"
)

// CreateAccount creates newAccount, funded by the account signer controls.
func (c *Client) CreateAccount(
	ctx context.Context,
	network *types.NetworkIdentifier,
	signer keys.Signer,
	newAccount aptos.AccountAddress,
	expiryTimeSecs uint64,
	sequenceNumber *uint64,
) (*types.TransactionIdentifier, error) {
	sender, err := c.accountAddress(ctx, network, signer)
	if err != nil {
		return nil, c.fail(stepDerive, err)
	}

	operations := aptos.CreateAccountOperations(sender, newAccount)

	return c.SubmitOperations(ctx, network, KeyMap{sender: signer}, operations, expiryTimeSecs, sequenceNumber)
}

// Transfer moves amount of the native coin from the account signer controls
// to receiver.
func (c *Client) Transfer(
	ctx context.Context,
	network *types.NetworkIdentifier,
	signer keys.Signer,
	receiver aptos.AccountAddress,
	amount uint64,
	expiryTimeSecs uint64,
	sequenceNumber *uint64,
) (*types.TransactionIdentifier, error) {
	sender, err := c.accountAddress(ctx, network, signer)
	if err != nil {
		return nil, c.fail(stepDerive, err)
	}

	operations := aptos.TransferOperations(sender, receiver, amount)

	return c.SubmitOperations(ctx, network, KeyMap{sender: signer}, operations, expiryTimeSecs, sequenceNumber)
}

// SubmitOperations runs the whole construction flow for operations:
// preprocess, metadata, payloads, parse, combine, parse and submit. The
// node's output is verified after both parse calls and any mismatch aborts
// the submission. Nothing is retried here; callers decide based on
// Retriable() of the returned *apierror.Error.
func (c *Client) SubmitOperations(
	ctx context.Context,
	network *types.NetworkIdentifier,
	keyResolver KeyResolver,
	operations []*types.Operation,
	expiryTimeSecs uint64,
	sequenceNumber *uint64,
) (*types.TransactionIdentifier, error) {
	start := time.Now()

	metadata, publicKeys, err := c.metadataForOps(ctx, network, operations, expiryTimeSecs, sequenceNumber, keyResolver)
	if err != nil {
		return nil, c.fail(stepMetadata, err)
	}

	unsigned, err := c.unsignedTransaction(ctx, network, operations, metadata.Metadata, publicKeys)
	if err != nil {
		return nil, c.fail(stepPayloads, err)
	}

	signedTransaction, err := c.signTransaction(ctx, network, keyResolver, unsigned, operations)
	if err != nil {
		return nil, c.fail(stepSign, err)
	}

	transactionIdentifier, err := c.submitTransaction(ctx, network, signedTransaction)
	if err != nil {
		return nil, c.fail(stepSubmit, err)
	}

	c.succeed(start)
	glog.V(1).Infof("Submitted transaction %s", transactionIdentifier.Hash)

	return transactionIdentifier, nil
}

// DeriveAccount asks the node which account publicKey controls.
func (c *Client) DeriveAccount(ctx context.Context, network *types.NetworkIdentifier, publicKey *types.PublicKey) (*types.AccountIdentifier, error) {
	response, err := c.Derive(ctx, &types.ConstructionDeriveRequest{
		NetworkIdentifier: network,
		PublicKey:         publicKey,
	})
	if err != nil {
		return nil, err
	}

	if response.AccountIdentifier == nil {
		return nil, apierror.Newf(apierror.InternalError, "failed to find account address for key")
	}

	return response.AccountIdentifier, nil
}

func (c *Client) accountAddress(ctx context.Context, network *types.NetworkIdentifier, signer keys.Signer) (aptos.AccountAddress, error) {
	account, err := c.DeriveAccount(ctx, network, signer.PublicKey())
	if err != nil {
		return aptos.AccountAddress{}, err
	}

	address, err := aptos.AddressFromAccount(account)
	if err != nil {
		return aptos.AccountAddress{}, apierror.Convert(err)
	}

	return address, nil
}

// metadataForOps runs preprocess, resolves every required signer to a public
// key and fetches the construction metadata for those keys. Every required
// account must resolve before metadata is requested.
func (c *Client) metadataForOps(
	ctx context.Context,
	network *types.NetworkIdentifier,
	operations []*types.Operation,
	expiryTimeSecs uint64,
	sequenceNumber *uint64,
	keyResolver KeyResolver,
) (*types.ConstructionMetadataResponse, []*types.PublicKey, error) {
	preprocessMetadata := &aptos.PreprocessMetadata{
		ExpiryTimeSecs: strconv.FormatUint(expiryTimeSecs, 10),
	}
	if sequenceNumber != nil {
		preprocessMetadata.SequenceNumber = strconv.FormatUint(*sequenceNumber, 10)
	}

	requestMetadata, err := types.MarshalMap(preprocessMetadata)
	if err != nil {
		return nil, nil, apierror.Wrap(apierror.InternalError, err)
	}

	feeMultiplier := c.feeMultiplier
	preprocessResponse, err := c.Preprocess(ctx, &types.ConstructionPreprocessRequest{
		NetworkIdentifier: network,
		Operations:        operations,
		Metadata:          requestMetadata,
		MaxFee: []*types.Amount{
			{
				Value:    aptos.AmountValue(c.maxFee, false),
				Currency: c.currency,
			},
		},
		SuggestedFeeMultiplier: &feeMultiplier,
	})
	if err != nil {
		return nil, nil, err
	}

	if len(preprocessResponse.RequiredPublicKeys) == 0 {
		return nil, nil, apierror.Newf(apierror.MissingPayloadMetadata, "no public keys found required for transaction")
	}

	publicKeys := make([]*types.PublicKey, 0, len(preprocessResponse.RequiredPublicKeys))
	for _, account := range preprocessResponse.RequiredPublicKeys {
		signer, ok := keyResolver.Resolve(account)
		if !ok {
			return nil, nil, apierror.Newf(apierror.MissingPayloadMetadata, "no public key found for account %s", types.AccountString(account))
		}
		publicKeys = append(publicKeys, signer.PublicKey())
	}

	if preprocessResponse.Options == nil {
		return nil, nil, apierror.Newf(apierror.MissingPayloadMetadata, "no metadata options returned from preprocess response")
	}

	metadataResponse, err := c.Metadata(ctx, &types.ConstructionMetadataRequest{
		NetworkIdentifier: network,
		Options:           preprocessResponse.Options,
		PublicKeys:        publicKeys,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := asserter.ConstructionMetadataResponse(metadataResponse); err != nil {
		return nil, nil, apierror.Wrap(apierror.MissingPayloadMetadata, err)
	}

	glog.V(1).Infof("Fetched metadata for %d operations and %d signers", len(operations), len(publicKeys))

	return metadataResponse, publicKeys, nil
}

// unsignedTransaction builds the unsigned transaction and immediately parses
// it back: an unsigned transaction must expose no signers and must decode to
// exactly the operations it was built from.
func (c *Client) unsignedTransaction(
	ctx context.Context,
	network *types.NetworkIdentifier,
	operations []*types.Operation,
	metadata map[string]interface{},
	publicKeys []*types.PublicKey,
) (*types.ConstructionPayloadsResponse, error) {
	payloads, err := c.Payloads(ctx, &types.ConstructionPayloadsRequest{
		NetworkIdentifier: network,
		Operations:        operations,
		Metadata:          metadata,
		PublicKeys:        publicKeys,
	})
	if err != nil {
		return nil, err
	}

	if err := asserter.ConstructionPayloadsResponse(payloads); err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	parsed, err := c.Parse(ctx, &types.ConstructionParseRequest{
		NetworkIdentifier: network,
		Signed:            false,
		Transaction:       payloads.UnsignedTransaction,
	})
	if err != nil {
		return nil, err
	}

	// Any signer list, even an empty one, means the node treated the
	// transaction as signed.
	if parsed.AccountIdentifierSigners != nil {
		return nil, apierror.Newf(apierror.InternalError, "signers were in the unsigned transaction: %s", types.PrintStruct(parsed.AccountIdentifierSigners))
	}

	if !operationsEqual(operations, parsed.Operations) {
		return nil, apierror.Newf(
			apierror.InternalError,
			"operations were not parsed to be the same as input, expected %s got %s",
			types.PrintStruct(operations),
			types.PrintStruct(parsed.Operations),
		)
	}

	return payloads, nil
}

// signTransaction signs every payload, combines the signatures into the
// transaction and parses the result back. Each payload is signed only if its
// bytes equal the signing message derived locally from the unsigned
// transaction, and the locally derived message is what gets signed. The
// signed transaction must expose exactly the signers, in payload order, and
// the original operations.
func (c *Client) signTransaction(
	ctx context.Context,
	network *types.NetworkIdentifier,
	keyResolver KeyResolver,
	unsigned *types.ConstructionPayloadsResponse,
	operations []*types.Operation,
) (string, error) {
	signingMessage, err := c.decoder.SigningMessage(unsigned.UnsignedTransaction)
	if err != nil {
		return "", apierror.Convert(err)
	}

	signatures := make([]*types.Signature, 0, len(unsigned.Payloads))
	signers := make([]*types.AccountIdentifier, 0, len(unsigned.Payloads))

	for _, payload := range unsigned.Payloads {
		account := payload.AccountIdentifier
		if account == nil {
			return "", apierror.Newf(apierror.MissingPayloadMetadata, "signing payload has no account")
		}

		signer, ok := keyResolver.Resolve(account)
		if !ok {
			return "", apierror.Newf(apierror.MissingPayloadMetadata, "no private key found for account %s", types.AccountString(account))
		}

		if !bytes.Equal(signingMessage, payload.Bytes) {
			return "", apierror.Newf(
				apierror.InternalError,
				"signing payload for %s does not match the unsigned transaction",
				types.AccountString(account),
			)
		}

		sigType, err := signatureType(signer.PublicKey())
		if err != nil {
			return "", err
		}
		if payload.SignatureType != "" && payload.SignatureType != sigType {
			return "", apierror.Newf(apierror.InvalidSignatureType, "payload asks for %s, key signs %s", payload.SignatureType, sigType)
		}

		signature, err := signer.Sign(&types.SigningPayload{
			AccountIdentifier: account,
			Bytes:             signingMessage,
			SignatureType:     sigType,
		}, sigType)
		if err != nil {
			return "", apierror.Convert(err)
		}
		signature.SigningPayload = payload
		signature.SignatureType = sigType

		signatures = append(signatures, signature)
		signers = append(signers, account)
	}

	combined, err := c.Combine(ctx, &types.ConstructionCombineRequest{
		NetworkIdentifier:   network,
		UnsignedTransaction: unsigned.UnsignedTransaction,
		Signatures:          signatures,
	})
	if err != nil {
		return "", err
	}

	if err := asserter.ConstructionCombineResponse(combined); err != nil {
		return "", apierror.Wrap(apierror.InternalError, err)
	}

	parsed, err := c.Parse(ctx, &types.ConstructionParseRequest{
		NetworkIdentifier: network,
		Signed:            true,
		Transaction:       combined.SignedTransaction,
	})
	if err != nil {
		return "", err
	}

	if len(parsed.AccountIdentifierSigners) == 0 {
		return "", apierror.Newf(apierror.InternalError, "signers were missing from the signed transaction")
	}

	if !accountsEqual(signers, parsed.AccountIdentifierSigners) {
		return "", apierror.Newf(
			apierror.InternalError,
			"signers don't match, expected %s got %s",
			types.PrintStruct(signers),
			types.PrintStruct(parsed.AccountIdentifierSigners),
		)
	}

	if !operationsEqual(operations, parsed.Operations) {
		return "", apierror.Newf(
			apierror.InternalError,
			"operations were not parsed to be the same as input, expected %s got %s",
			types.PrintStruct(operations),
			types.PrintStruct(parsed.Operations),
		)
	}

	return combined.SignedTransaction, nil
}

func (c *Client) submitTransaction(ctx context.Context, network *types.NetworkIdentifier, signedTransaction string) (*types.TransactionIdentifier, error) {
	response, err := c.Submit(ctx, &types.ConstructionSubmitRequest{
		NetworkIdentifier: network,
		SignedTransaction: signedTransaction,
	})
	if err != nil {
		return nil, err
	}

	if err := asserter.TransactionIdentifierResponse(response); err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	return response.TransactionIdentifier, nil
}

// operationsEqual compares operation lists element by element, order
// included, on their canonical JSON form.
func operationsEqual(expected []*types.Operation, actual []*types.Operation) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if types.Hash(expected[i]) != types.Hash(actual[i]) {
			return false
		}
	}
	return true
}

func accountsEqual(expected []*types.AccountIdentifier, actual []*types.AccountIdentifier) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if types.Hash(expected[i]) != types.Hash(actual[i]) {
			return false
		}
	}
	return true
}
