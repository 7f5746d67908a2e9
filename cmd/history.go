package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history [hash]",
	Short: "List past submissions, newest first, or show the one with hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := aptos.LoadConfig()
		if err != nil {
			return err
		}

		j, err := openJournal(config)
		if err != nil {
			return err
		}
		if j == nil {
			return errors.New("no journal directory configured")
		}
		defer j.Close()

		if len(args) == 1 {
			record, err := j.GetByHash(args[0])
			if err != nil {
				return errors.Wrapf(err, "transaction %s", args[0])
			}
			printRecord(cmd.OutOrStdout(), record)
			return nil
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		records, err := j.List(limit)
		if err != nil {
			return err
		}
		for _, record := range records {
			printRecord(cmd.OutOrStdout(), record)
		}
		return nil
	},
}

func printRecord(w io.Writer, record *journal.Record) {
	outcome := record.Hash
	if !record.Succeeded() {
		outcome = fmt.Sprintf("failed (%d): %s", record.ErrorCode, record.Error)
	}

	fmt.Fprintf(w, "%d\t%s\t%s\t%s -> %s\t%d\t%s\n",
		record.ID,
		record.SubmittedAt.Format(time.RFC3339),
		record.Operation,
		record.Sender,
		record.Receiver,
		record.Amount,
		outcome,
	)
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of submissions to list, 0 for all")
	rootCmd.AddCommand(historyCmd)
}
