package cmd

import (
	"bytes"
	"encoding/hex"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/mocknode"
)

type cliEnv struct {
	node  *mocknode.Node
	flags []string
	keys  map[string]aptos.AccountAddress
}

func newCLIEnv(t *testing.T, names ...string) *cliEnv {
	require := require.New(t)

	node, err := mocknode.NewNode(&mocknode.Config{Network: aptos.Local})
	require.NoError(err)
	handler, err := node.Handler()
	require.NoError(err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	directory := t.TempDir()
	file := keyFile{}
	addresses := map[string]aptos.AccountAddress{}
	for _, name := range names {
		keyPair, err := keys.GenerateKeypair(types.Edwards25519)
		require.NoError(err)
		file.Keys = append(file.Keys, keyEntry{
			Name:       name,
			PrivateKey: hex.EncodeToString(keyPair.PrivateKey),
		})
		addresses[name] = aptos.AddressFromPublicKey(keyPair.PublicKey.Bytes)
	}

	data, err := yaml.Marshal(&file)
	require.NoError(err)
	keyPath := filepath.Join(directory, "keys.yaml")
	require.NoError(os.WriteFile(keyPath, data, 0600))

	return &cliEnv{
		node: node,
		flags: []string{
			"--network", "local",
			"--node-url", server.URL,
			"--key-file", keyPath,
			"--journal-directory", filepath.Join(directory, "journal"),
		},
		keys: addresses,
	}
}

func (env *cliEnv) run(args ...string) (string, error) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(append(args, env.flags...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTransferCommand(t *testing.T) {
	require := require.New(t)
	env := newCLIEnv(t, "alice")
	env.node.Fund(env.keys["alice"], 100_000_000)

	receiver := "0xb"
	out, err := env.run("transfer", "--from", "alice", receiver, "0.0001")
	require.NoError(err)
	hash := strings.TrimSpace(out)
	require.NotEmpty(hash)

	receiverAddress, err := aptos.ParseAccountAddress(receiver)
	require.NoError(err)
	balance, ok := env.node.Balance(receiverAddress)
	require.True(ok)
	require.Equal(uint64(10_000), balance)

	out, err = env.run("balance", receiver)
	require.NoError(err)
	require.Contains(out, "0.0001 APT")

	out, err = env.run("history")
	require.NoError(err)
	require.Contains(out, hash)
	require.Contains(out, env.keys["alice"].String())

	out, err = env.run("history", hash)
	require.NoError(err)
	require.Contains(out, "transfer")
}

func TestFailedSubmissionIsRecorded(t *testing.T) {
	require := require.New(t)
	env := newCLIEnv(t, "bob")

	_, err := env.run("transfer", "--from", "bob", "0xb", "1")
	require.Error(err)
	require.Contains(formatError(err), "Error 101 AccountNotFound")

	out, err := env.run("history", "--limit", "1")
	require.NoError(err)
	require.Contains(out, "failed (101)")
}

func TestCreateAccountCommand(t *testing.T) {
	require := require.New(t)
	env := newCLIEnv(t, "alice")
	env.node.Fund(env.keys["alice"], 1_000)

	_, err := env.run("create-account", "--from", "alice", "0xc")
	require.NoError(err)

	address, err := aptos.ParseAccountAddress("0xc")
	require.NoError(err)
	_, ok := env.node.Balance(address)
	require.True(ok)
}

func TestUnknownKey(t *testing.T) {
	env := newCLIEnv(t, "alice")

	_, err := env.run("transfer", "--from", "mallory", "0xb", "1")
	require.ErrorContains(t, err, `no key named "mallory"`)
}

func TestNetworkCommands(t *testing.T) {
	require := require.New(t)
	env := newCLIEnv(t)

	out, err := env.run("network", "list")
	require.NoError(err)
	require.Regexp(`"network":\s*"local"`, out)

	out, err = env.run("network", "options")
	require.NoError(err)
	require.Contains(out, aptos.CreateAccountOpType)

	out, err = env.run("block", "0")
	require.NoError(err)
	require.Regexp(`"index":\s*0`, out)
}

func TestFundAccounts(t *testing.T) {
	require := require.New(t)

	node, err := mocknode.NewNode(&mocknode.Config{Network: aptos.Local})
	require.NoError(err)

	require.NoError(fundAccounts(node, []string{"0xa=500"}))
	address, err := aptos.ParseAccountAddress("0xa")
	require.NoError(err)
	balance, ok := node.Balance(address)
	require.True(ok)
	require.Equal(uint64(500), balance)

	require.Error(fundAccounts(node, []string{"0xa"}))
	require.Error(fundAccounts(node, []string{"0xa=lots"}))
	require.Error(fundAccounts(node, []string{"nothex=1"}))
}

func TestLoadKeysRejectsDuplicates(t *testing.T) {
	require := require.New(t)

	keyPair, err := keys.GenerateKeypair(types.Edwards25519)
	require.NoError(err)
	privateKey := hex.EncodeToString(keyPair.PrivateKey)

	data, err := yaml.Marshal(&keyFile{Keys: []keyEntry{
		{Name: "alice", PrivateKey: privateKey},
		{Name: "alice", PrivateKey: privateKey},
	}})
	require.NoError(err)

	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(os.WriteFile(path, data, 0600))

	_, err = loadKeys(path)
	require.ErrorContains(err, "appears twice")
}

func TestLoadKeysRejectsOtherCurves(t *testing.T) {
	require := require.New(t)

	keyPair, err := keys.GenerateKeypair(types.Secp256k1)
	require.NoError(err)

	data, err := yaml.Marshal(&keyFile{Keys: []keyEntry{
		{Name: "bob", PrivateKey: hex.EncodeToString(keyPair.PrivateKey), Curve: string(types.Secp256k1)},
	}})
	require.NoError(err)

	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(os.WriteFile(path, data, 0600))

	_, err = loadKeys(path)
	require.ErrorContains(err, "only edwards25519 is supported")
}
