package cmd

import (
	"fmt"
	"io"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/coinbase/rosetta-sdk-go/types"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/deso-protocol/rosetta-aptos/apierror"
	"github.com/deso-protocol/rosetta-aptos/aptos"
	"github.com/deso-protocol/rosetta-aptos/construction"
	"github.com/deso-protocol/rosetta-aptos/journal"
)

// newClient builds a client for config. The returned func flushes metrics
// and must be called when the client is no longer used.
func newClient(config *aptos.Config) (*construction.Client, func(), error) {
	var opts []construction.Option
	closeStats := func() {}

	if config.StatsdAddress != "" {
		stats, err := statsd.New(config.StatsdAddress)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to reach statsd at %s", config.StatsdAddress)
		}
		opts = append(opts, construction.WithStatsd(stats))
		closeStats = func() {
			if err := stats.Close(); err != nil {
				glog.Errorf("statsd: %v", err)
			}
		}
	}

	client, err := construction.NewClientFromConfig(config, opts...)
	if err != nil {
		closeStats()
		return nil, nil, err
	}
	return client, closeStats, nil
}

// openJournal returns nil when no journal directory is configured.
func openJournal(config *aptos.Config) (*journal.Journal, error) {
	if config.JournalDirectory == "" {
		return nil, nil
	}

	directory, err := expandPath(config.JournalDirectory)
	if err != nil {
		return nil, err
	}
	return journal.Open(directory)
}

// recordSubmission writes the outcome of a submission to the journal. A
// journal failure never fails the command: the transaction is already out.
func recordSubmission(config *aptos.Config, record *journal.Record, hash string, submitErr error) {
	j, err := openJournal(config)
	if err != nil {
		glog.Errorf("Unable to open journal: %v", err)
		return
	}
	if j == nil {
		return
	}
	defer j.Close()

	record.Hash = hash
	if submitErr != nil {
		apiErr := apierror.Convert(submitErr)
		record.ErrorCode = apiErr.Code()
		record.Error = apiErr.Error()
	}

	if _, err := j.Put(record); err != nil {
		glog.Errorf("Unable to record submission %s: %v", hash, err)
	}
}

func formatError(err error) string {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf("Error: %v", err)
	}

	retry := ""
	if apiErr.Retriable() {
		retry = " (retriable)"
	}
	return fmt.Sprintf("Error %d %s: %s%s", apiErr.Code(), apiErr.Kind, apiErr.Message(), retry)
}

func printJSON(w io.Writer, v interface{}) {
	fmt.Fprintln(w, types.PrettyPrintStruct(v))
}
