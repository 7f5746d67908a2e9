package mocknode

import (
	"context"
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/server"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/golang/glog"
	"github.com/shopspring/decimal"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

const (
	// defaultExpirySecs applies when preprocess was given no expiry.
	defaultExpirySecs = 60

	ed25519PublicKeyLength = 32
)

type ConstructionAPIService struct {
	node *Node
}

func NewConstructionAPIService(node *Node) server.ConstructionAPIServicer {
	return &ConstructionAPIService{
		node: node,
	}
}

func (s *ConstructionAPIService) ConstructionDerive(ctx context.Context, request *types.ConstructionDeriveRequest) (*types.ConstructionDeriveResponse, *types.Error) {
	if rErr := s.node.injected("construction/derive"); rErr != nil {
		return nil, rErr
	}
	if request.PublicKey.CurveType != types.Edwards25519 {
		return nil, newErr(apierror.InvalidSignatureType, "unsupported curve %s", request.PublicKey.CurveType)
	}

	return &types.ConstructionDeriveResponse{
		AccountIdentifier: aptos.AddressFromPublicKey(request.PublicKey.Bytes).AccountIdentifier(),
	}, nil
}

func (s *ConstructionAPIService) ConstructionPreprocess(ctx context.Context, request *types.ConstructionPreprocessRequest) (*types.ConstructionPreprocessResponse, *types.Error) {
	if rErr := s.node.injected("construction/preprocess"); rErr != nil {
		return nil, rErr
	}

	intent, rErr := intentFromOperations(request.Operations)
	if rErr != nil {
		return nil, rErr
	}

	var metadata aptos.PreprocessMetadata
	if err := types.UnmarshalMap(request.Metadata, &metadata); err != nil {
		return nil, wrapErr(apierror.DeserializationFailed, err)
	}

	var maxFee string
	switch len(request.MaxFee) {
	case 0:
	case 1:
		fee, err := aptos.ParseAmount(request.MaxFee[0])
		if err != nil || !fee.IsPositive() {
			return nil, newErr(apierror.InvalidMaxGasFees, "max fee must be a positive amount of %s", aptos.NativeCoin().Symbol)
		}
		maxFee = fee.String()
	default:
		return nil, newErr(apierror.InvalidMaxGasFees, "only one max fee is supported")
	}

	var feeMultiplier float64
	if request.SuggestedFeeMultiplier != nil {
		feeMultiplier = *request.SuggestedFeeMultiplier
		if feeMultiplier <= 0 || math.IsNaN(feeMultiplier) || math.IsInf(feeMultiplier, 0) {
			return nil, newErr(apierror.InvalidGasMultiplier, "fee multiplier %v", feeMultiplier)
		}
	}

	payload, err := intent.payload.Encode()
	if err != nil {
		return nil, convertErr(err)
	}

	options, err := types.MarshalMap(&aptos.PreprocessOptions{
		Sender:             intent.sender.String(),
		ExpiryTimeSecs:     metadata.ExpiryTimeSecs,
		SequenceNumber:     metadata.SequenceNumber,
		MaxFee:             maxFee,
		FeeMultiplier:      feeMultiplier,
		TransactionPayload: hex.EncodeToString(payload),
	})
	if err != nil {
		return nil, wrapErr(apierror.InternalError, err)
	}

	response := &types.ConstructionPreprocessResponse{
		Options:            options,
		RequiredPublicKeys: []*types.AccountIdentifier{intent.sender.AccountIdentifier()},
	}

	faults := s.node.Faults()
	if faults.OmitRequiredPublicKeys {
		response.RequiredPublicKeys = nil
	}
	if faults.OmitOptions {
		response.Options = nil
	}

	return response, nil
}

func (s *ConstructionAPIService) ConstructionMetadata(ctx context.Context, request *types.ConstructionMetadataRequest) (*types.ConstructionMetadataResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}
	if rErr := s.node.injected("construction/metadata"); rErr != nil {
		return nil, rErr
	}

	var options aptos.PreprocessOptions
	if err := types.UnmarshalMap(request.Options, &options); err != nil {
		return nil, wrapErr(apierror.DeserializationFailed, err)
	}

	sender, err := aptos.ParseAccountAddress(options.Sender)
	if err != nil {
		return nil, convertErr(err)
	}

	payload, err := hex.DecodeString(options.TransactionPayload)
	if err != nil {
		return nil, convertErr(err)
	}
	if _, err := aptos.DecodeEntryFunction(payload); err != nil {
		return nil, convertErr(err)
	}

	if len(request.PublicKeys) != 1 {
		return nil, newErr(apierror.InvalidInput, "expected exactly one public key, got %d", len(request.PublicKeys))
	}
	if aptos.AddressFromPublicKey(request.PublicKeys[0].Bytes) != sender {
		return nil, newErr(apierror.InvalidInput, "public key does not control %s", sender)
	}

	sequenceNumber := options.SequenceNumber
	if sequenceNumber == "" {
		account, ok := s.node.ledger.Account(sender)
		if !ok {
			return nil, newErr(apierror.AccountNotFound, "account %s not found", sender)
		}
		sequenceNumber = strconv.FormatUint(account.SequenceNumber, 10)
	}

	gasUnitPrice := GasUnitPrice
	if options.FeeMultiplier > 0 {
		gasUnitPrice = uint64(math.Ceil(float64(GasUnitPrice) * options.FeeMultiplier))
	}

	maxGasAmount := aptos.DefaultMaxFee / gasUnitPrice
	if options.MaxFee != "" {
		maxFee, err := decimal.NewFromString(options.MaxFee)
		if err != nil {
			return nil, wrapErr(apierror.InvalidMaxGasFees, err)
		}
		maxGasAmount = maxFee.BigInt().Uint64() / gasUnitPrice
	}
	if maxGasAmount < GasPerTransaction {
		return nil, newErr(apierror.InvalidMaxGasFees, "max fee covers %d gas, a transaction needs %d", maxGasAmount, GasPerTransaction)
	}

	expiryTimeSecs := options.ExpiryTimeSecs
	if expiryTimeSecs == "" || expiryTimeSecs == "0" {
		expiryTimeSecs = strconv.FormatInt(time.Now().Unix()+defaultExpirySecs, 10)
	}

	metadata, err := types.MarshalMap(&aptos.ConstructionMetadata{
		Sender:         sender.String(),
		SequenceNumber: sequenceNumber,
		MaxGasAmount:   strconv.FormatUint(maxGasAmount, 10),
		GasUnitPrice:   strconv.FormatUint(gasUnitPrice, 10),
		ExpiryTimeSecs: expiryTimeSecs,
		ChainID:        s.node.ChainID,
	})
	if err != nil {
		return nil, wrapErr(apierror.InternalError, err)
	}

	return &types.ConstructionMetadataResponse{
		Metadata: metadata,
		SuggestedFee: []*types.Amount{
			{
				Value:    strconv.FormatUint(GasPerTransaction*gasUnitPrice, 10),
				Currency: s.node.Currency,
			},
		},
	}, nil
}

func (s *ConstructionAPIService) ConstructionPayloads(ctx context.Context, request *types.ConstructionPayloadsRequest) (*types.ConstructionPayloadsResponse, *types.Error) {
	if rErr := s.node.injected("construction/payloads"); rErr != nil {
		return nil, rErr
	}

	intent, rErr := intentFromOperations(request.Operations)
	if rErr != nil {
		return nil, rErr
	}

	var metadata aptos.ConstructionMetadata
	if err := types.UnmarshalMap(request.Metadata, &metadata); err != nil {
		return nil, wrapErr(apierror.MissingPayloadMetadata, err)
	}

	sender, err := aptos.ParseAccountAddress(metadata.Sender)
	if err != nil {
		return nil, convertErr(err)
	}
	if sender != intent.sender {
		return nil, newErr(apierror.InvalidOperations, "operations are signed by %s, metadata by %s", intent.sender, sender)
	}
	if metadata.ChainID != s.node.ChainID {
		return nil, newErr(apierror.ChainIDMismatch, "chain id %d, node runs %d", metadata.ChainID, s.node.ChainID)
	}

	txn := &aptos.RawTransaction{
		Sender:  sender.Bytes(),
		Payload: intent.payload,
		ChainID: metadata.ChainID,
	}
	for field, value := range map[*uint64]string{
		&txn.SequenceNumber:          metadata.SequenceNumber,
		&txn.MaxGasAmount:            metadata.MaxGasAmount,
		&txn.GasUnitPrice:            metadata.GasUnitPrice,
		&txn.ExpirationTimestampSecs: metadata.ExpiryTimeSecs,
	} {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, wrapErr(apierror.MissingPayloadMetadata, err)
		}
		*field = parsed
	}

	encoded, err := txn.Encode()
	if err != nil {
		return nil, convertErr(err)
	}
	message, err := txn.SigningMessage()
	if err != nil {
		return nil, convertErr(err)
	}

	if s.node.Faults().SubstituteSigningMessage {
		substitute := *txn
		substitute.Payload.Amount++
		if message, err = substitute.SigningMessage(); err != nil {
			return nil, convertErr(err)
		}
	}

	return &types.ConstructionPayloadsResponse{
		UnsignedTransaction: hex.EncodeToString(encoded),
		Payloads: []*types.SigningPayload{
			{
				AccountIdentifier: sender.AccountIdentifier(),
				Bytes:             message,
				SignatureType:     types.Ed25519,
			},
		},
	}, nil
}

func (s *ConstructionAPIService) ConstructionCombine(ctx context.Context, request *types.ConstructionCombineRequest) (*types.ConstructionCombineResponse, *types.Error) {
	if rErr := s.node.injected("construction/combine"); rErr != nil {
		return nil, rErr
	}

	unsigned, err := hex.DecodeString(request.UnsignedTransaction)
	if err != nil {
		return nil, convertErr(err)
	}
	txn, err := aptos.DecodeRawTransaction(unsigned)
	if err != nil {
		return nil, convertErr(err)
	}

	if len(request.Signatures) != 1 {
		return nil, newErr(apierror.UnsupportedSignatureCount, "expected 1 signature, got %d", len(request.Signatures))
	}
	signature := request.Signatures[0]
	if signature.SignatureType != types.Ed25519 || signature.PublicKey.CurveType != types.Edwards25519 {
		return nil, newErr(apierror.InvalidSignatureType, "%s over %s", signature.SignatureType, signature.PublicKey.CurveType)
	}

	signed := &aptos.SignedTransaction{
		Raw: *txn,
		Authenticators: []aptos.Authenticator{
			{
				PublicKey: signature.PublicKey.Bytes,
				Signature: signature.Bytes,
			},
		},
	}
	encoded, err := signed.Encode()
	if err != nil {
		return nil, convertErr(err)
	}

	return &types.ConstructionCombineResponse{
		SignedTransaction: hex.EncodeToString(encoded),
	}, nil
}

func (s *ConstructionAPIService) ConstructionHash(ctx context.Context, request *types.ConstructionHashRequest) (*types.TransactionIdentifierResponse, *types.Error) {
	if rErr := s.node.injected("construction/hash"); rErr != nil {
		return nil, rErr
	}

	_, hash, rErr := decodeSigned(request.SignedTransaction)
	if rErr != nil {
		return nil, rErr
	}

	return &types.TransactionIdentifierResponse{
		TransactionIdentifier: &types.TransactionIdentifier{Hash: hash},
	}, nil
}

func (s *ConstructionAPIService) ConstructionParse(ctx context.Context, request *types.ConstructionParseRequest) (*types.ConstructionParseResponse, *types.Error) {
	if rErr := s.node.injected("construction/parse"); rErr != nil {
		return nil, rErr
	}

	data, err := hex.DecodeString(request.Transaction)
	if err != nil {
		return nil, convertErr(err)
	}

	var txn *aptos.RawTransaction
	var signers []*types.AccountIdentifier
	if request.Signed {
		signed, err := aptos.DecodeSignedTransaction(data)
		if err != nil {
			return nil, convertErr(err)
		}
		txn = &signed.Raw
		for _, authenticator := range signed.Authenticators {
			signers = append(signers, aptos.AddressFromPublicKey(authenticator.PublicKey).AccountIdentifier())
		}
	} else {
		if txn, err = aptos.DecodeRawTransaction(data); err != nil {
			return nil, convertErr(err)
		}
	}

	if txn.ChainID != s.node.ChainID {
		return nil, newErr(apierror.ChainIDMismatch, "transaction is for chain %d, node runs %d", txn.ChainID, s.node.ChainID)
	}

	intent, err := intentFromTransaction(txn)
	if err != nil {
		return nil, convertErr(err)
	}
	operations := intent.operations()

	faults := s.node.Faults()
	if request.Signed {
		if faults.TamperSignedOperations {
			operations = tamper(operations)
		}
		if faults.DropSignedSigners {
			signers = nil
		}
		if faults.WrongSignedSigner {
			signers = []*types.AccountIdentifier{tamperedAccount()}
		}
	} else {
		if faults.TamperUnsignedOperations {
			operations = tamper(operations)
		}
		if faults.SignersOnUnsignedParse {
			signers = []*types.AccountIdentifier{intent.sender.AccountIdentifier()}
		}
	}

	return &types.ConstructionParseResponse{
		Operations:               operations,
		AccountIdentifierSigners: signers,
	}, nil
}

func (s *ConstructionAPIService) ConstructionSubmit(ctx context.Context, request *types.ConstructionSubmitRequest) (*types.TransactionIdentifierResponse, *types.Error) {
	if rErr := s.node.requireOnline(); rErr != nil {
		return nil, rErr
	}
	if rErr := s.node.injected("construction/submit"); rErr != nil {
		return nil, rErr
	}

	signed, hash, rErr := decodeSigned(request.SignedTransaction)
	if rErr != nil {
		return nil, rErr
	}
	if signed.Raw.ChainID != s.node.ChainID {
		return nil, newErr(apierror.ChainIDMismatch, "transaction is for chain %d, node runs %d", signed.Raw.ChainID, s.node.ChainID)
	}
	if len(signed.Authenticators) != 1 {
		return nil, newErr(apierror.UnsupportedSignatureCount, "expected 1 signature, got %d", len(signed.Authenticators))
	}

	authenticator := signed.Authenticators[0]
	if len(authenticator.PublicKey) != ed25519PublicKeyLength {
		return nil, newErr(apierror.InvalidSignatureType, "public key is %d bytes", len(authenticator.PublicKey))
	}

	intent, err := intentFromTransaction(&signed.Raw)
	if err != nil {
		return nil, convertErr(err)
	}

	message, err := signed.Raw.SigningMessage()
	if err != nil {
		return nil, convertErr(err)
	}
	signature := &types.Signature{
		SigningPayload: &types.SigningPayload{
			AccountIdentifier: intent.sender.AccountIdentifier(),
			Bytes:             message,
			SignatureType:     types.Ed25519,
		},
		PublicKey: &types.PublicKey{
			Bytes:     authenticator.PublicKey,
			CurveType: types.Edwards25519,
		},
		SignatureType: types.Ed25519,
		Bytes:         authenticator.Signature,
	}
	if err := (&keys.SignerEdwards25519{}).Verify(signature); err != nil {
		glog.V(1).Infof("Rejected signature on %s: %v", hash, err)
		return nil, convertErr(aptos.NewNodeError(aptos.VMErrorCode, "INVALID_SIGNATURE"))
	}

	if aptos.AddressFromPublicKey(authenticator.PublicKey) != intent.sender {
		return nil, convertErr(aptos.NewNodeError(aptos.VMErrorCode, "INVALID_AUTH_KEY"))
	}

	if nodeErr := s.node.ledger.Apply(&signed.Raw, hash, intent.operations()); nodeErr != nil {
		glog.V(1).Infof("Rejected transaction %s: %v", hash, nodeErr)
		return nil, convertErr(nodeErr)
	}

	glog.V(1).Infof("Committed transaction %s", hash)

	return &types.TransactionIdentifierResponse{
		TransactionIdentifier: &types.TransactionIdentifier{Hash: hash},
	}, nil
}

func decodeSigned(signedTransaction string) (*aptos.SignedTransaction, string, *types.Error) {
	data, err := hex.DecodeString(signedTransaction)
	if err != nil {
		return nil, "", convertErr(err)
	}
	signed, err := aptos.DecodeSignedTransaction(data)
	if err != nil {
		return nil, "", convertErr(err)
	}
	return signed, hashHex(data), nil
}

func tamperedAccount() *types.AccountIdentifier {
	// 0x1 is the framework account, which never signs user transactions.
	address, _ := aptos.ParseAccountAddress("0x1")
	return address.AccountIdentifier()
}

// tamper moves the first operation to an account nobody asked for.
func tamper(operations []*types.Operation) []*types.Operation {
	tampered := make([]*types.Operation, len(operations))
	copy(tampered, operations)
	first := *tampered[0]
	first.Account = tamperedAccount()
	tampered[0] = &first
	return tampered
}
