package cmd

import (
	"os"

	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/construction"
)

// keyFile is the on-disk format of --key-file:
//
//	keys:
//	  - name: alice
//	    private_key: 9b2f...
//	    curve: edwards25519
type keyFile struct {
	Keys []keyEntry `yaml:"keys"`
}

type keyEntry struct {
	Name       string `yaml:"name"`
	PrivateKey string `yaml:"private_key"`
	Curve      string `yaml:"curve,omitempty"`
}

func loadKeys(path string) (map[string]keys.Signer, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read key file %s", expanded)
	}

	var file keyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "unable to parse key file %s", expanded)
	}

	signers := make(map[string]keys.Signer, len(file.Keys))
	for _, entry := range file.Keys {
		if entry.Name == "" {
			return nil, errors.Errorf("key file %s has a key without a name", expanded)
		}
		if _, exists := signers[entry.Name]; exists {
			return nil, errors.Errorf("key %q appears twice in %s", entry.Name, expanded)
		}

		// Account addresses are derived from ed25519 public keys, so no
		// other curve can sign for an account.
		curve := types.Edwards25519
		if entry.Curve != "" && types.CurveType(entry.Curve) != curve {
			return nil, errors.Errorf("key %q uses curve %s, only %s is supported", entry.Name, entry.Curve, curve)
		}

		signer, err := construction.SignerFromPrivateKey(entry.PrivateKey, curve)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid key %q", entry.Name)
		}
		signers[entry.Name] = signer
	}

	return signers, nil
}

func signerFor(config *aptos.Config, name string) (keys.Signer, error) {
	if name == "" {
		return nil, errors.New("--from is required")
	}

	signers, err := loadKeys(config.KeyFile)
	if err != nil {
		return nil, err
	}

	signer, ok := signers[name]
	if !ok {
		return nil, errors.Errorf("no key named %q in %s", name, config.KeyFile)
	}
	return signer, nil
}
