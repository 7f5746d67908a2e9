package aptos

import (
	"net/url"
	"strings"
	"time"

	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	NodeURL          *url.URL
	Network          *types.NetworkIdentifier
	NetworkName      Network
	ChainID          uint32
	Currency         *types.Currency
	MaxFee           uint64
	FeeMultiplier    float64
	Expiry           time.Duration
	RequestTimeout   time.Duration
	RateLimit        float64
	StatsdAddress    string
	JournalDirectory string
	KeyFile          string
}

func LoadConfig() (*Config, error) {
	result := Config{}

	result.NetworkName = Network(strings.ToUpper(viper.GetString("network")))
	chainID, ok := ChainID(result.NetworkName)
	if !ok {
		return nil, errors.New("unknown network")
	}
	result.ChainID = chainID
	result.Network = NetworkIdentifier(result.NetworkName)
	result.Currency = NativeCoin()

	nodeURL, err := url.Parse(viper.GetString("node-url"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid node-url")
	}
	if nodeURL.Scheme != "http" && nodeURL.Scheme != "https" {
		return nil, errors.Errorf("node-url must be http or https, got %q", nodeURL.Scheme)
	}
	result.NodeURL = nodeURL

	result.MaxFee = viper.GetUint64("max-fee")
	if result.MaxFee == 0 {
		result.MaxFee = DefaultMaxFee
	}

	result.FeeMultiplier = viper.GetFloat64("fee-multiplier")
	if result.FeeMultiplier <= 0 {
		result.FeeMultiplier = DefaultFeeMultiplier
	}

	result.Expiry = viper.GetDuration("expiry")
	if result.Expiry <= 0 {
		result.Expiry = time.Minute
	}

	result.RequestTimeout = viper.GetDuration("request-timeout")
	result.RateLimit = viper.GetFloat64("rate-limit")
	result.StatsdAddress = viper.GetString("statsd-address")
	result.JournalDirectory = viper.GetString("journal-directory")
	result.KeyFile = viper.GetString("key-file")

	return &result, nil
}

// ExpiryTimeSecs returns the absolute expiration, in unix seconds, for a
// transaction built now.
func (c *Config) ExpiryTimeSecs(now time.Time) uint64 {
	return uint64(now.Add(c.Expiry).Unix())
}
