package cmd

import (
	"fmt"
	"strconv"

	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/construction"
)

// withClient loads config and hands a ready client to run.
func withClient(run func(cmd *cobra.Command, config *aptos.Config, client *construction.Client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := aptos.LoadConfig()
		if err != nil {
			return err
		}

		client, closeClient, err := newClient(config)
		if err != nil {
			return err
		}
		defer closeClient()

		return run(cmd, config, client, args)
	}
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the APT balance of an account",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(cmd *cobra.Command, config *aptos.Config, client *construction.Client, args []string) error {
		address, err := aptos.ParseAccountAddress(args[0])
		if err != nil {
			return err
		}

		response, err := client.AccountBalance(cmd.Context(), &types.AccountBalanceRequest{
			NetworkIdentifier: config.Network,
			AccountIdentifier: address.AccountIdentifier(),
			Currencies:        []*types.Currency{config.Currency},
		})
		if err != nil {
			return err
		}

		for _, balance := range response.Balances {
			coins, err := aptos.FormatAmount(balance.Value, balance.Currency)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s base units) at block %d\n",
				coins, balance.Currency.Symbol, balance.Value, response.BlockIdentifier.Index)
		}
		if sequenceNumber, ok := response.Metadata["sequence_number"]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "sequence number %v\n", sequenceNumber)
		}
		return nil
	}),
}

var blockCmd = &cobra.Command{
	Use:   "block [height]",
	Short: "Print a block, the current one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: withClient(func(cmd *cobra.Command, config *aptos.Config, client *construction.Client, args []string) error {
		var height int64
		if len(args) == 1 {
			parsed, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid height %q", args[0])
			}
			height = parsed
		} else {
			status, err := client.NetworkStatus(cmd.Context(), &types.NetworkRequest{NetworkIdentifier: config.Network})
			if err != nil {
				return err
			}
			height = status.CurrentBlockIdentifier.Index
		}

		response, err := client.Block(cmd.Context(), &types.BlockRequest{
			NetworkIdentifier: config.Network,
			BlockIdentifier:   &types.PartialBlockIdentifier{Index: &height},
		})
		if err != nil {
			return err
		}

		printJSON(cmd.OutOrStdout(), response.Block)
		return nil
	}),
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Query the node's network endpoints",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the networks the node serves",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, config *aptos.Config, client *construction.Client, args []string) error {
		response, err := client.NetworkList(cmd.Context())
		if err != nil {
			return err
		}
		printJSON(cmd.OutOrStdout(), response)
		return nil
	}),
}

var networkStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the node's current and genesis block",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, config *aptos.Config, client *construction.Client, args []string) error {
		response, err := client.NetworkStatus(cmd.Context(), &types.NetworkRequest{NetworkIdentifier: config.Network})
		if err != nil {
			return err
		}
		printJSON(cmd.OutOrStdout(), response)
		return nil
	}),
}

var networkOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show versions, operation types and errors the node supports",
	Args:  cobra.NoArgs,
	RunE: withClient(func(cmd *cobra.Command, config *aptos.Config, client *construction.Client, args []string) error {
		response, err := client.NetworkOptions(cmd.Context(), &types.NetworkRequest{NetworkIdentifier: config.Network})
		if err != nil {
			return err
		}
		printJSON(cmd.OutOrStdout(), response)
		return nil
	}),
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkStatusCmd, networkOptionsCmd)
	rootCmd.AddCommand(balanceCmd, blockCmd, networkCmd)
}
