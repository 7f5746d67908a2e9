package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coinbase/rosetta-sdk-go/keys"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/spf13/cobra"

	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/construction"
	"github.com/deso-protocol/rosetta-aptos/journal"
)

var transferCmd = &cobra.Command{
	Use:   "transfer <receiver> <amount>",
	Short: "Transfer APT, amount given in whole coins",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := aptos.LoadConfig()
		if err != nil {
			return err
		}

		receiver, err := aptos.ParseAccountAddress(args[0])
		if err != nil {
			return err
		}
		amount, err := aptos.ParseCoinAmount(args[1], config.Currency)
		if err != nil {
			return err
		}

		return submit(cmd, config, &journal.Record{
			Operation: aptos.TransferFunc,
			Receiver:  receiver.String(),
			Amount:    amount,
		}, func(ctx context.Context, client *construction.Client, signer keys.Signer, sequenceNumber *uint64) (*types.TransactionIdentifier, error) {
			return client.Transfer(ctx, config.Network, signer, receiver, amount, config.ExpiryTimeSecs(time.Now()), sequenceNumber)
		})
	},
}

var createAccountCmd = &cobra.Command{
	Use:   "create-account <address>",
	Short: "Create an account on chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := aptos.LoadConfig()
		if err != nil {
			return err
		}

		newAccount, err := aptos.ParseAccountAddress(args[0])
		if err != nil {
			return err
		}

		return submit(cmd, config, &journal.Record{
			Operation: aptos.CreateAccountFn,
			Receiver:  newAccount.String(),
		}, func(ctx context.Context, client *construction.Client, signer keys.Signer, sequenceNumber *uint64) (*types.TransactionIdentifier, error) {
			return client.CreateAccount(ctx, config.Network, signer, newAccount, config.ExpiryTimeSecs(time.Now()), sequenceNumber)
		})
	},
}

type submitFunc func(ctx context.Context, client *construction.Client, signer keys.Signer, sequenceNumber *uint64) (*types.TransactionIdentifier, error)

// submit runs one construction flow with the key named by --from and
// records the outcome.
func submit(cmd *cobra.Command, config *aptos.Config, record *journal.Record, run submitFunc) error {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}
	signer, err := signerFor(config, from)
	if err != nil {
		return err
	}

	var sequenceNumber *uint64
	if cmd.Flags().Changed("sequence-number") {
		value, err := cmd.Flags().GetUint64("sequence-number")
		if err != nil {
			return err
		}
		sequenceNumber = &value
	}

	client, closeClient, err := newClient(config)
	if err != nil {
		return err
	}
	defer closeClient()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	record.Network = config.Network.Network
	record.Sender = aptos.AddressFromPublicKey(signer.PublicKey().Bytes).String()
	record.SubmittedAt = time.Now()

	txn, err := run(ctx, client, signer, sequenceNumber)

	hash := ""
	if txn != nil {
		hash = txn.Hash
	}
	recordSubmission(config, record, hash, err)

	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{transferCmd, createAccountCmd} {
		cmd.Flags().String("from", "", "name of the signing key in the key file")
		cmd.Flags().Uint64("sequence-number", 0, "sequence number to use instead of the account's current one")
		rootCmd.AddCommand(cmd)
	}
}
