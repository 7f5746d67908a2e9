// Package construction drives the rosetta construction flow against a
// remote node: it turns operations into a signed, verified and submitted
// transaction without the caller knowing the chain's transaction format.
package construction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/davecgh/go-spew/spew"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
)

const (
	AccountBalanceEndpoint         = "account/balance"
	BlockEndpoint                  = "block"
	ConstructionCombineEndpoint    = "construction/combine"
	ConstructionDeriveEndpoint     = "construction/derive"
	ConstructionHashEndpoint       = "construction/hash"
	ConstructionMetadataEndpoint   = "construction/metadata"
	ConstructionParseEndpoint      = "construction/parse"
	ConstructionPayloadsEndpoint   = "construction/payloads"
	ConstructionPreprocessEndpoint = "construction/preprocess"
	ConstructionSubmitEndpoint     = "construction/submit"
	NetworkListEndpoint            = "network/list"
	NetworkOptionsEndpoint         = "network/options"
	NetworkStatusEndpoint          = "network/status"

	contentTypeJSON = "application/json"
)

// TransactionDecoder derives the canonical signing message of a hex encoded
// unsigned transaction.
type TransactionDecoder interface {
	SigningMessage(unsignedTransaction string) ([]byte, error)
}

// Client talks to one rosetta node. It is safe for concurrent use: nothing
// it holds changes after construction.
type Client struct {
	address       *url.URL
	httpClient    *http.Client
	limiter       *rate.Limiter
	stats         statsd.ClientInterface
	decoder       TransactionDecoder
	currency      *types.Currency
	maxFee        uint64
	feeMultiplier float64
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every single remote call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit caps outgoing calls per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithStatsd(stats statsd.ClientInterface) Option {
	return func(c *Client) {
		c.stats = stats
	}
}

func WithTransactionDecoder(decoder TransactionDecoder) Option {
	return func(c *Client) {
		c.decoder = decoder
	}
}

func WithMaxFee(maxFee uint64) Option {
	return func(c *Client) {
		c.maxFee = maxFee
	}
}

func WithFeeMultiplier(multiplier float64) Option {
	return func(c *Client) {
		c.feeMultiplier = multiplier
	}
}

func WithCurrency(currency *types.Currency) Option {
	return func(c *Client) {
		c.currency = currency
	}
}

func NewClient(address string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid node address %q", address)
	}

	client := &Client{
		address:       parsed,
		httpClient:    http.DefaultClient,
		stats:         &statsd.NoOpClient{},
		decoder:       aptos.TransactionCodec{},
		currency:      aptos.NativeCoin(),
		maxFee:        aptos.DefaultMaxFee,
		feeMultiplier: aptos.DefaultFeeMultiplier,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// NewClientFromConfig wires a client with everything config asks for.
func NewClientFromConfig(config *aptos.Config, opts ...Option) (*Client, error) {
	base := []Option{
		WithTimeout(config.RequestTimeout),
		WithRateLimit(config.RateLimit),
		WithMaxFee(config.MaxFee),
		WithFeeMultiplier(config.FeeMultiplier),
		WithCurrency(config.Currency),
	}
	return NewClient(config.NodeURL.String(), append(base, opts...)...)
}

// call posts request as JSON to endpoint and decodes the reply. A non-2xx
// reply carries a rosetta error object. The returned error is always an
// *apierror.Error.
func call[T any](ctx context.Context, c *Client, endpoint string, request interface{}) (*T, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierror.Wrap(apierror.InternalError, err)
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address.JoinPath(endpoint).String(), bytes.NewReader(body))
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}
	httpRequest.Header.Set("Content-Type", contentTypeJSON)
	httpRequest.Header.Set("Accept", contentTypeJSON)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, errors.Wrapf(err, "%s failed", endpoint))
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, errors.Wrapf(err, "%s failed", endpoint))
	}

	if httpResponse.StatusCode < http.StatusOK || httpResponse.StatusCode >= http.StatusMultipleChoices {
		var remote types.Error
		if err := json.Unmarshal(responseBody, &remote); err != nil {
			return nil, apierror.Convert(errors.Wrapf(err, "%s returned status %d", endpoint, httpResponse.StatusCode))
		}
		if remote.Message == "" {
			return nil, apierror.Newf(apierror.InternalError, "%s returned status %d without an error object", endpoint, httpResponse.StatusCode)
		}
		glog.V(1).Infof("%s: node returned error %d: %s", endpoint, remote.Code, remote.Message)
		return nil, apierror.FromRemote(&remote)
	}

	var response T
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, apierror.Convert(errors.Wrapf(err, "%s returned malformed body", endpoint))
	}

	if glog.V(2) {
		glog.Infof("%s: %s", endpoint, spew.Sdump(&response))
	}

	return &response, nil
}

func (c *Client) AccountBalance(ctx context.Context, request *types.AccountBalanceRequest) (*types.AccountBalanceResponse, error) {
	return call[types.AccountBalanceResponse](ctx, c, AccountBalanceEndpoint, request)
}

func (c *Client) Block(ctx context.Context, request *types.BlockRequest) (*types.BlockResponse, error) {
	return call[types.BlockResponse](ctx, c, BlockEndpoint, request)
}

func (c *Client) Combine(ctx context.Context, request *types.ConstructionCombineRequest) (*types.ConstructionCombineResponse, error) {
	return call[types.ConstructionCombineResponse](ctx, c, ConstructionCombineEndpoint, request)
}

func (c *Client) Derive(ctx context.Context, request *types.ConstructionDeriveRequest) (*types.ConstructionDeriveResponse, error) {
	return call[types.ConstructionDeriveResponse](ctx, c, ConstructionDeriveEndpoint, request)
}

func (c *Client) Hash(ctx context.Context, request *types.ConstructionHashRequest) (*types.TransactionIdentifierResponse, error) {
	return call[types.TransactionIdentifierResponse](ctx, c, ConstructionHashEndpoint, request)
}

func (c *Client) Metadata(ctx context.Context, request *types.ConstructionMetadataRequest) (*types.ConstructionMetadataResponse, error) {
	return call[types.ConstructionMetadataResponse](ctx, c, ConstructionMetadataEndpoint, request)
}

func (c *Client) Parse(ctx context.Context, request *types.ConstructionParseRequest) (*types.ConstructionParseResponse, error) {
	return call[types.ConstructionParseResponse](ctx, c, ConstructionParseEndpoint, request)
}

func (c *Client) Payloads(ctx context.Context, request *types.ConstructionPayloadsRequest) (*types.ConstructionPayloadsResponse, error) {
	return call[types.ConstructionPayloadsResponse](ctx, c, ConstructionPayloadsEndpoint, request)
}

func (c *Client) Preprocess(ctx context.Context, request *types.ConstructionPreprocessRequest) (*types.ConstructionPreprocessResponse, error) {
	return call[types.ConstructionPreprocessResponse](ctx, c, ConstructionPreprocessEndpoint, request)
}

func (c *Client) Submit(ctx context.Context, request *types.ConstructionSubmitRequest) (*types.TransactionIdentifierResponse, error) {
	return call[types.TransactionIdentifierResponse](ctx, c, ConstructionSubmitEndpoint, request)
}

func (c *Client) NetworkList(ctx context.Context) (*types.NetworkListResponse, error) {
	return call[types.NetworkListResponse](ctx, c, NetworkListEndpoint, &types.MetadataRequest{})
}

func (c *Client) NetworkOptions(ctx context.Context, request *types.NetworkRequest) (*types.NetworkOptionsResponse, error) {
	return call[types.NetworkOptionsResponse](ctx, c, NetworkOptionsEndpoint, request)
}

func (c *Client) NetworkStatus(ctx context.Context, request *types.NetworkRequest) (*types.NetworkStatusResponse, error) {
	return call[types.NetworkStatusResponse](ctx, c, NetworkStatusEndpoint, request)
}
